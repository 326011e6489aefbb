// Copyright 2026 The fwstamp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package revision resolves the short commit identifier of a git work tree.
package revision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fallback is the tag used when the revision cannot be resolved.
const Fallback = "unknown"

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 10 * time.Second

// MaxTagLength is the longest tag accepted by ValidTag.
const MaxTagLength = 64

const (
	minAbbrev   = 4
	maxAbbrev   = 40
	dirtySuffix = "-dirty"

	// waitDelay bounds how long a killed git may keep its output pipes open
	// through child processes it started.
	waitDelay = time.Second
)

// Errors returned by Resolve, InsideWorkTree and GitPath. They are wrapped
// with the failing git arguments; match them with errors.Is.
var (
	ErrGitNotFound   = errors.New("git executable not found")
	ErrCommandFailed = errors.New("git command failed")
	ErrInvalidTag    = errors.New("invalid revision tag")
)

var tagPattern = regexp.MustCompile(`^[0-9A-Za-z._+-]+$`)

// ValidTag reports whether s can be embedded verbatim inside a quoted
// preprocessor string.
func ValidTag(s string) bool {
	return len(s) > 0 && len(s) <= MaxTagLength && tagPattern.MatchString(s)
}

// ValidAbbrev reports whether n is an accepted abbreviation length.
// Zero selects git's own default.
func ValidAbbrev(n int) bool {
	return n == 0 || (n >= minAbbrev && n <= maxAbbrev)
}

// Runner runs name with args in dir and returns its standard output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Options configures a Resolver. The zero value runs `git rev-parse
// --short HEAD` in the current directory.
type Options struct {
	Git     string
	Dir     string
	Abbrev  int
	Dirty   bool
	Timeout time.Duration
	Runner  Runner
	// LookPath locates the git executable. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Resolver looks up the revision of a work tree.
type Resolver struct {
	opts     Options
	run      Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewResolver returns a Resolver for opts. A nil logger discards output.
func NewResolver(opts Options, logger *slog.Logger) *Resolver {
	if opts.Git == "" {
		opts.Git = "git"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	run := opts.Runner
	if run == nil {
		run = execRunner
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		opts:     opts,
		run:      run,
		lookPath: lookPath,
		logger:   logger,
	}
}

// Resolve returns the short revision of HEAD. Errors wrap ErrGitNotFound,
// ErrCommandFailed or ErrInvalidTag.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	out, err := r.git(ctx, r.revParseArgs()...)
	if err != nil {
		return "", err
	}

	tag := strings.TrimSpace(string(out))
	if !ValidTag(tag) {
		return "", fmt.Errorf("revision: %w: %q", ErrInvalidTag, tag)
	}

	if r.opts.Dirty {
		dirty, err := r.isDirty(ctx)
		switch {
		case err != nil:
			r.logger.Debug("dirty check failed", "error", err)
		case dirty:
			tag += dirtySuffix
		}
	}
	return tag, nil
}

// GitPath returns the resolved path of the git executable.
func (r *Resolver) GitPath() (string, error) {
	p, err := r.lookPath(r.opts.Git)
	if err != nil {
		return "", fmt.Errorf("revision: %w: %s", ErrGitNotFound, r.opts.Git)
	}
	return p, nil
}

// InsideWorkTree reports whether the configured directory is inside a git
// work tree.
func (r *Resolver) InsideWorkTree(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if errors.Is(err, ErrCommandFailed) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

func (r *Resolver) revParseArgs() []string {
	short := "--short"
	if r.opts.Abbrev > 0 {
		short += "=" + strconv.Itoa(r.opts.Abbrev)
	}
	return []string{"rev-parse", short, "HEAD"}
}

func (r *Resolver) isDirty(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

func (r *Resolver) git(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := r.run(ctx, r.opts.Dir, r.opts.Git, args...)
	r.logger.Debug("git",
		"args", args,
		"dir", r.opts.Dir,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return nil, fmt.Errorf("revision: git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // git path comes from local config
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGitNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w: %s", ErrCommandFailed, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
