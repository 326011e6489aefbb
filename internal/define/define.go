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

// Package define models the preprocessor definitions handed to a firmware
// compiler and renders them for the host build system.
package define

import (
	"regexp"
	"strings"
)

// escapedQuote is a double quote escaped for a compiler command line.
const escapedQuote = `\"`

var symbolPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidSymbol reports whether name is a valid C preprocessor identifier.
func ValidSymbol(name string) bool {
	return symbolPattern.MatchString(name)
}

// Quote wraps s in escaped double quotes so a compiler command line turns
// it into a string literal.
func Quote(s string) string {
	return escapedQuote + s + escapedQuote
}

// Unquote strips the escaped quotes added by Quote. The second return
// value is false when value was not quoted.
func Unquote(value string) (string, bool) {
	if len(value) < 2*len(escapedQuote) ||
		!strings.HasPrefix(value, escapedQuote) ||
		!strings.HasSuffix(value, escapedQuote) {
		return value, false
	}
	return value[len(escapedQuote) : len(value)-len(escapedQuote)], true
}

// Define is a single preprocessor definition.
type Define struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Set is the ordered set of definitions for one build target.
type Set struct {
	defines []Define
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Append adds name=value. An existing definition with the same name is
// replaced in place.
func (s *Set) Append(name, value string) {
	for i := range s.defines {
		if s.defines[i].Name == name {
			s.defines[i].Value = value
			return
		}
	}
	s.defines = append(s.defines, Define{Name: name, Value: value})
}

// Lookup returns the value bound to name.
func (s *Set) Lookup(name string) (string, bool) {
	for _, d := range s.defines {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// Defines returns a copy of the definitions in insertion order.
func (s *Set) Defines() []Define {
	out := make([]Define, len(s.defines))
	copy(out, s.defines)
	return out
}

// Len returns the number of definitions.
func (s *Set) Len() int {
	return len(s.defines)
}
