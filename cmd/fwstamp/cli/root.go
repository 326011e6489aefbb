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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/whywaita/fwstamp/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
	dir        string
}

// Execute runs the fwstamp CLI command tree.
func Execute() error {
	cmd := NewRootCmd(context.Background(), os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		var ec interface{ ExitCode() int }
		if !errors.As(err, &ec) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return err
	}
	return nil
}

// ExitCode returns the process exit code implied by err.
// Non-nil errors default to exit code 1 unless they expose ExitCode().
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		code := ec.ExitCode()
		if code > 0 {
			return code
		}
	}

	return 1
}

// NewRootCmd builds the fwstamp root command.
func NewRootCmd(ctx context.Context, outWriter, errWriter io.Writer) *cobra.Command {
	return newRootCmdWithDeps(ctx, outWriter, errWriter, nil)
}

func newRootCmdWithDeps(ctx context.Context, outWriter, errWriter io.Writer, deps *gitDeps) *cobra.Command {
	opts := &rootOptions{}
	var showVersion bool
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := &cobra.Command{
		Use:   "fwstamp",
		Short: "Stamp the git revision into firmware builds",
		Long: `fwstamp resolves the short git revision of the working tree and hands it
to the firmware compiler as the FW_VERSION preprocessor define.

PlatformIO (platformio.ini):
  [env]
  build_flags = !fwstamp stamp

If the revision cannot be resolved the tag falls back to "unknown" and the
build continues.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				return writeVersion(cmd.OutOrStdout())
			}
			return cmd.Help()
		},
	}
	cmd.SetContext(ctx)
	cmd.SetOut(outWriter)
	cmd.SetErr(errWriter)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to config file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", "", "Working tree to inspect (default: current directory)")
	cmd.PersistentFlags().BoolVar(&showVersion, "version", false, "Print version information and exit")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newStampCmd(opts, deps))
	cmd.AddCommand(newTagCmd(opts, deps))
	cmd.AddCommand(newDoctorCmd(opts, deps))

	return cmd
}

// newLogger returns the stderr logger. stdout is reserved for output the
// build system captures.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// loadConfig loads the layered config and applies the persistent flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("dir") {
		cfg.Dir = opts.dir
	}
	return cfg, nil
}
