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

// Package stamp registers the current source revision as a preprocessor
// definition.
//
// A Stamper never fails: when the revision cannot be resolved the tag
// degrades to a fixed fallback and the build proceeds.
package stamp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/whywaita/fwstamp/internal/define"
	"github.com/whywaita/fwstamp/internal/revision"
)

// DefaultSymbol is the preprocessor symbol that carries the revision tag.
const DefaultSymbol = "FW_VERSION"

// Resolver resolves the current revision tag.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Options configures a Stamper. Zero values select the defaults.
type Options struct {
	Symbol   string
	Fallback string

	// Diagnostics receives the "Setting <symbol> to: <tag>" line.
	Diagnostics io.Writer
	Logger      *slog.Logger
}

// Stamp is the outcome of one Run.
type Stamp struct {
	Symbol   string
	Tag      string
	Fallback bool
	Define   define.Define
	// Err is the lookup failure that was absorbed, if any.
	Err      error
	Duration time.Duration
	At       time.Time
}

// Stamper resolves a revision tag and registers it in a definition set.
type Stamper struct {
	resolver Resolver
	symbol   string
	fallback string
	diag     io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Stamper backed by resolver.
func New(resolver Resolver, opts Options) *Stamper {
	if opts.Symbol == "" {
		opts.Symbol = DefaultSymbol
	}
	if opts.Fallback == "" {
		opts.Fallback = revision.Fallback
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Stamper{
		resolver: resolver,
		symbol:   opts.Symbol,
		fallback: opts.Fallback,
		diag:     opts.Diagnostics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Run resolves the tag, appends it to env as a quoted string literal and
// writes the diagnostic line. env is mutated exactly once.
func (s *Stamper) Run(ctx context.Context, env *define.Set) Stamp {
	start := s.now()
	tag, err := s.resolver.Resolve(ctx)
	if err == nil && !revision.ValidTag(tag) {
		err = fmt.Errorf("stamp: %w: %q", revision.ErrInvalidTag, tag)
	}

	result := Stamp{
		Symbol:   s.symbol,
		Tag:      tag,
		Duration: s.now().Sub(start),
		At:       start,
	}
	if err != nil {
		s.logger.Debug("revision lookup failed, using fallback",
			"fallback", s.fallback,
			"error", err,
		)
		result.Tag = s.fallback
		result.Fallback = true
		result.Err = err
	}

	result.Define = define.Define{Name: s.symbol, Value: define.Quote(result.Tag)}
	env.Append(result.Define.Name, result.Define.Value)

	if _, werr := fmt.Fprintf(s.diag, "Setting %s to: %s\n", s.symbol, result.Tag); werr != nil {
		s.logger.Debug("write diagnostic", "error", werr)
	}
	return result
}
