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

// Package build provides version and build metadata for the fwstamp binary
// itself.
//
// Values are injected at compile time via ldflags:
//
//	go build -ldflags "-X .../build.versionFromLDFlags=v0.1.0 -X .../build.commitFromLDFlags=$(git rev-parse --short HEAD) -X .../build.dateFromLDFlags=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// When installed via `go install`, the module version, VCS revision and time are
// read from the embedded build info instead.
package build

import "runtime/debug"

const shortCommitLength = 7

// Version is the semantic version. Set by ldflags at build time.
var Version = resolveVersion(versionFromLDFlags, readBuildInfo)

// Commit is the short git commit hash. Set by ldflags at build time.
var Commit = resolveCommit(commitFromLDFlags, readBuildInfo)

// Date is the UTC build timestamp. Set by ldflags at build time, otherwise
// the commit time recorded in the build info.
var Date = resolveDate(dateFromLDFlags, readBuildInfo)

var (
	versionFromLDFlags = "dev"
	commitFromLDFlags  = "unknown"
	dateFromLDFlags    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

func resolveVersion(ldflags string, read func() (*debug.BuildInfo, bool)) string {
	if ldflags != "dev" {
		return ldflags
	}
	if info, ok := read(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func resolveCommit(ldflags string, read func() (*debug.BuildInfo, bool)) string {
	if ldflags != "unknown" {
		return ldflags
	}
	if info, ok := read(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= shortCommitLength {
				return setting.Value[:shortCommitLength]
			}
		}
	}
	return "unknown"
}

func resolveDate(ldflags string, read func() (*debug.BuildInfo, bool)) string {
	if ldflags != "unknown" {
		return ldflags
	}
	if info, ok := read(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" && setting.Value != "" {
				return setting.Value
			}
		}
	}
	return "unknown"
}
