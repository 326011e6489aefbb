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
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/whywaita/fwstamp/internal/config"
	"github.com/whywaita/fwstamp/internal/define"
	"github.com/whywaita/fwstamp/internal/metrics"
	"github.com/whywaita/fwstamp/internal/revision"
	"github.com/whywaita/fwstamp/internal/stamp"
)

// gitDeps holds the collaborators tests replace. Nil fields use the real
// git executable and process signals.
type gitDeps struct {
	runner        revision.Runner
	lookPath      func(string) (string, error)
	notifyContext func(context.Context, ...os.Signal) (context.Context, context.CancelFunc)
}

func (d *gitDeps) resolve() gitDeps {
	resolved := gitDeps{notifyContext: signal.NotifyContext}
	if d == nil {
		return resolved
	}
	resolved.runner = d.runner
	resolved.lookPath = d.lookPath
	if d.notifyContext != nil {
		resolved.notifyContext = d.notifyContext
	}
	return resolved
}

// signalContext cancels the lookup on SIGINT or SIGTERM. The stamper then
// reports the fallback tag.
func (d gitDeps) signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return d.notifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (d gitDeps) resolverOptions(cfg config.Config) revision.Options {
	ropts := cfg.ResolverOptions()
	ropts.Runner = d.runner
	ropts.LookPath = d.lookPath
	return ropts
}

// stampFlags are the per-command overrides. Only flags set on the command
// line replace config values.
type stampFlags struct {
	symbol      string
	format      string
	output      string
	metricsFile string
	abbrev      int
	dirty       bool
}

func (f *stampFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Symbol = f.symbol
	}
	if flags.Changed("format") {
		cfg.Format = f.format
	}
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if flags.Changed("abbrev") {
		cfg.Abbrev = f.abbrev
	}
	if flags.Changed("dirty") {
		cfg.Dirty = f.dirty
	}
}

func (f *stampFlags) registerRevision(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.abbrev, "abbrev", 0, "Abbreviated hash length, 4-40 (default: git's choice)")
	cmd.Flags().BoolVar(&f.dirty, "dirty", false, "Append -dirty when tracked files have uncommitted changes")
}

func newStampCmd(opts *rootOptions, deps *gitDeps) *cobra.Command {
	resolved := deps.resolve()
	var flags stampFlags

	cmd := &cobra.Command{
		Use:   "stamp",
		Short: "Resolve the revision and emit the FW_VERSION define",
		Long: `Resolves the short git revision of HEAD and emits it as a preprocessor
define. "Setting FW_VERSION to: <tag>" is always printed on stderr.

Formats:
  flags  (default): -DFW_VERSION=\"<tag>\" on stdout, for build_flags = !fwstamp stamp
  header:           a C header with #define FW_VERSION "<tag>"
  json:             the define plus the tag and whether the fallback was used

The command succeeds when the revision cannot be resolved; the tag then
falls back to "unknown".

Examples:
  fwstamp stamp
  fwstamp stamp --format header --output include/fw_version.h
  fwstamp stamp --abbrev 10 --dirty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

			ctx, stop := resolved.signalContext(cmd)
			defer stop()
			return runStamp(ctx, cmd, cfg, resolved, logger)
		},
	}

	cmd.Flags().StringVar(&flags.symbol, "symbol", stamp.DefaultSymbol, "Preprocessor symbol name")
	cmd.Flags().StringVarP(&flags.format, "format", "f", string(define.FormatFlags), "Output format: "+strings.Join(define.Formats, ", "))
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.registerRevision(cmd)

	return cmd
}

func newTagCmd(opts *rootOptions, deps *gitDeps) *cobra.Command {
	resolved := deps.resolve()
	var flags stampFlags

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Print the revision tag only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

			ctx, stop := resolved.signalContext(cmd)
			defer stop()
			result, _ := resolveStamp(ctx, cfg, resolved, io.Discard, logger)
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.Tag); err != nil {
				return fmt.Errorf("cli: write tag: %w", err)
			}
			return nil
		},
	}
	flags.registerRevision(cmd)

	return cmd
}

// resolveStamp runs the stamper against a fresh definition set.
func resolveStamp(ctx context.Context, cfg config.Config, deps gitDeps, diag io.Writer, logger *slog.Logger) (stamp.Stamp, *define.Set) {
	resolver := revision.NewResolver(deps.resolverOptions(cfg), logger)

	stamper := stamp.New(resolver, stamp.Options{
		Symbol:      cfg.Symbol,
		Fallback:    cfg.Fallback,
		Diagnostics: diag,
		Logger:      logger,
	})
	env := define.NewSet()
	return stamper.Run(ctx, env), env
}

func runStamp(ctx context.Context, cmd *cobra.Command, cfg config.Config, deps gitDeps, logger *slog.Logger) error {
	format, err := cfg.OutputFormat()
	if err != nil {
		return fmt.Errorf("stamp: %w", err)
	}

	result, env := resolveStamp(ctx, cfg, deps, cmd.ErrOrStderr(), logger)

	data, err := define.Render(format, env, define.Meta{Tag: result.Tag, Fallback: result.Fallback})
	if err != nil {
		return fmt.Errorf("stamp: %w", err)
	}

	if cfg.Output == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("stamp: write output: %w", err)
		}
	} else {
		changed, err := define.WriteFile(cfg.Output, data)
		if err != nil {
			return fmt.Errorf("stamp: %w", err)
		}
		logger.Debug("output", "path", cfg.Output, "changed", changed)
	}

	if cfg.MetricsFile != "" {
		recorder := metrics.NewRecorder()
		recorder.Observe(result.Symbol, result.Tag, result.Fallback, result.Duration, result.At)
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics not written", "error", err)
		}
	}
	return nil
}
