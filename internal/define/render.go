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

package define

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Format selects how a Set is rendered.
type Format string

const (
	// FormatFlags renders -D compiler flags, one line, for PlatformIO
	// `build_flags = !cmd` and shell substitution.
	FormatFlags Format = "flags"
	// FormatHeader renders a C header with #define lines.
	FormatHeader Format = "header"
	// FormatJSON renders a JSON document.
	FormatJSON Format = "json"
)

// HeaderGuard is the include guard of generated headers.
const HeaderGuard = "FWSTAMP_GENERATED_H"

// Formats lists the supported format names.
var Formats = []string{string(FormatFlags), string(FormatHeader), string(FormatJSON)}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatFlags, FormatHeader, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("define: unknown format %q (valid: %s)", s, strings.Join(Formats, ", "))
	}
}

// Meta carries revision details that only the JSON format reports.
type Meta struct {
	Tag      string
	Fallback bool
}

type jsonDocument struct {
	Defines  []Define `json:"defines"`
	Tag      string   `json:"tag"`
	Fallback bool     `json:"fallback"`
}

// Render serializes set in format f.
func Render(f Format, set *Set, meta Meta) ([]byte, error) {
	switch f {
	case FormatFlags:
		return renderFlags(set), nil
	case FormatHeader:
		return renderHeader(set), nil
	case FormatJSON:
		doc := jsonDocument{Defines: set.Defines(), Tag: meta.Tag, Fallback: meta.Fallback}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("define: marshal json: %w", err)
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("define: unknown format %q", f)
	}
}

func renderFlags(set *Set) []byte {
	flags := make([]string, 0, set.Len())
	for _, d := range set.Defines() {
		if d.Value == "" {
			flags = append(flags, "-D"+d.Name)
			continue
		}
		flags = append(flags, "-D"+d.Name+"="+d.Value)
	}
	return []byte(strings.Join(flags, " ") + "\n")
}

func renderHeader(set *Set) []byte {
	var b bytes.Buffer
	b.WriteString("// Code generated by fwstamp. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", HeaderGuard, HeaderGuard)
	for _, d := range set.Defines() {
		value := d.Value
		if s, ok := Unquote(value); ok {
			value = `"` + s + `"`
		}
		if value == "" {
			fmt.Fprintf(&b, "#define %s\n", d.Name)
			continue
		}
		fmt.Fprintf(&b, "#define %s %s\n", d.Name, value)
	}
	fmt.Fprintf(&b, "\n#endif // %s\n", HeaderGuard)
	return b.Bytes()
}
