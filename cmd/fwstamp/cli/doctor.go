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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/whywaita/fwstamp/internal/build"
	"github.com/whywaita/fwstamp/internal/config"
	"github.com/whywaita/fwstamp/internal/define"
	"github.com/whywaita/fwstamp/internal/revision"
)

func newDoctorCmd(opts *rootOptions, deps *gitDeps) *cobra.Command {
	resolved := deps.resolve()

	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the revision can be resolved here",
		Long:  "Run diagnostic checks on git, the working tree and the fwstamp config, and report any issues.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runDoctor(cmd.Context(), cmd, opts, resolved)
			return nil
		},
	}
}

// runDoctor writes the report and returns the number of issues found.
// Issues never fail the command: a build would still succeed with the
// fallback tag.
func runDoctor(ctx context.Context, cmd *cobra.Command, opts *rootOptions, deps gitDeps) int {
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()
	styles := newCheckStyles(w)

	fmt.Fprintln(w, "🩺 fwstamp doctor")
	fmt.Fprintln(w)

	issues := 0

	// 1. Binary version
	styles.pass(w, "Version", fmt.Sprintf("%s (%s)", build.Version, runtime.Version()))

	// 2. Config
	cfg, ok := doctorConfig(w, styles, cmd, opts)
	if !ok {
		issues++
		cfg = config.Default()
		cfg.Dir = opts.dir
	}

	resolver := revision.NewResolver(deps.resolverOptions(cfg), newLogger(cmd.ErrOrStderr(), opts.verbose))

	// 3. git executable
	gitPath, err := resolver.GitPath()
	if err != nil {
		issues++
		styles.issue(w, "git", fmt.Sprintf("%q not found on PATH", cfg.Git), "Install git or set `git:` in the config.")
		return doctorSummary(w, issues)
	}
	styles.pass(w, "git", gitPath)

	// 4. Work tree
	dir := cfg.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	inside, err := resolver.InsideWorkTree(ctx)
	if err != nil || !inside {
		issues++
		styles.issue(w, "Work tree", dir+" is not inside a git repository", fmt.Sprintf("Builds will use the fallback tag %q.", cfg.Fallback))
		return doctorSummary(w, issues)
	}
	styles.pass(w, "Work tree", dir)

	// 5. HEAD
	tag, err := resolver.Resolve(ctx)
	if err != nil {
		issues++
		styles.issue(w, "HEAD", "not resolvable", firstLine(err.Error()))
		return doctorSummary(w, issues)
	}
	styles.pass(w, "HEAD", tag)
	styles.pass(w, "Define", "-D"+cfg.Symbol+"="+define.Quote(tag))

	return doctorSummary(w, issues)
}

func doctorConfig(w io.Writer, styles checkStyles, cmd *cobra.Command, opts *rootOptions) (config.Config, bool) {
	cfg, err := loadConfig(cmd, opts)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		styles.issue(w, "Config", opts.configPath, err.Error())
		return config.Config{}, false
	}

	source := opts.configPath
	if _, statErr := os.Stat(opts.configPath); statErr != nil {
		source = "defaults (no " + opts.configPath + ")"
	}
	styles.pass(w, "Config", source)
	return cfg, true
}

func doctorSummary(w io.Writer, issues int) int {
	fmt.Fprintln(w)
	if issues == 0 {
		fmt.Fprintln(w, "No issues found.")
	} else {
		noun := "issue"
		if issues > 1 {
			noun = "issues"
		}
		fmt.Fprintf(w, "%d %s found.\n", issues, noun)
	}
	return issues
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
