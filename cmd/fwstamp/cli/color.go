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
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// noColor returns true when the NO_COLOR environment variable is set.
func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// checkStyles renders the status marks of diagnostic reports.
type checkStyles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
	dim  lipgloss.Style
}

// newCheckStyles returns styles bound to w. Colors are dropped when w is not
// a terminal or NO_COLOR is set (https://no-color.org/).
func newCheckStyles(w io.Writer) checkStyles {
	r := lipgloss.NewRenderer(w)
	if noColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return checkStyles{
		ok:   r.NewStyle().Foreground(lipgloss.Color("10")),
		fail: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:  r.NewStyle().Faint(true),
	}
}

func (s checkStyles) pass(w io.Writer, label, detail string) {
	io.WriteString(w, s.ok.Render("✓")+" "+label+": "+detail+"\n")
}

func (s checkStyles) issue(w io.Writer, label, detail, hint string) {
	line := s.fail.Render("✗") + " " + label + ": " + detail + "\n"
	if hint != "" {
		line += "  " + s.dim.Render(hint) + "\n"
	}
	io.WriteString(w, line)
}
