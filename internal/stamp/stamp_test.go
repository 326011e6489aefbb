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

package stamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whywaita/fwstamp/internal/define"
	"github.com/whywaita/fwstamp/internal/revision"
)

type staticResolver struct {
	tag   string
	err   error
	calls int
}

func (r *staticResolver) Resolve(context.Context) (string, error) {
	r.calls++
	return r.tag, r.err
}

func TestRunSuccess(t *testing.T) {
	var diag bytes.Buffer
	res := &staticResolver{tag: "1a2b3c4"}
	env := define.NewSet()

	got := New(res, Options{Diagnostics: &diag}).Run(context.Background(), env)

	assert.Equal(t, "FW_VERSION", got.Symbol)
	assert.Equal(t, "1a2b3c4", got.Tag)
	assert.False(t, got.Fallback)
	assert.NoError(t, got.Err)
	assert.Equal(t, define.Define{Name: "FW_VERSION", Value: `\"1a2b3c4\"`}, got.Define)
	assert.Equal(t, []define.Define{got.Define}, env.Defines())
	assert.Equal(t, "Setting FW_VERSION to: 1a2b3c4\n", diag.String())
	assert.Equal(t, 1, res.calls)
}

func TestRunFallback(t *testing.T) {
	tests := []struct {
		name string
		res  *staticResolver
	}{
		{name: "not a repository", res: &staticResolver{err: fmt.Errorf("revision: %w", revision.ErrCommandFailed)}},
		{name: "git missing", res: &staticResolver{err: fmt.Errorf("revision: %w", revision.ErrGitNotFound)}},
		{name: "unusable tag without error", res: &staticResolver{tag: `bad"tag`}},
		{name: "empty tag without error", res: &staticResolver{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diag bytes.Buffer
			env := define.NewSet()

			got := New(tt.res, Options{Diagnostics: &diag}).Run(context.Background(), env)

			assert.Equal(t, "unknown", got.Tag)
			assert.True(t, got.Fallback)
			assert.Error(t, got.Err)
			v, ok := env.Lookup("FW_VERSION")
			require.True(t, ok)
			assert.Equal(t, `\"unknown\"`, v)
			assert.Equal(t, "Setting FW_VERSION to: unknown\n", diag.String())
		})
	}
}

func TestRunCustomSymbolAndFallback(t *testing.T) {
	var diag bytes.Buffer
	env := define.NewSet()
	res := &staticResolver{err: errors.New("boom")}

	got := New(res, Options{Symbol: "APP_REV", Fallback: "nogit", Diagnostics: &diag}).Run(context.Background(), env)

	assert.Equal(t, "nogit", got.Tag)
	v, ok := env.Lookup("APP_REV")
	require.True(t, ok)
	assert.Equal(t, `\"nogit\"`, v)
	assert.Equal(t, "Setting APP_REV to: nogit\n", diag.String())
}

func TestRunReplacesExistingDefine(t *testing.T) {
	env := define.NewSet()
	env.Append("FW_VERSION", define.Quote("stale"))

	New(&staticResolver{tag: "abc1234"}, Options{}).Run(context.Background(), env)

	require.Equal(t, 1, env.Len())
	v, _ := env.Lookup("FW_VERSION")
	assert.Equal(t, `\"abc1234\"`, v)
}

func TestRunIsIdempotent(t *testing.T) {
	s := New(&staticResolver{tag: "abc1234"}, Options{})

	first := s.Run(context.Background(), define.NewSet())
	second := s.Run(context.Background(), define.NewSet())
	assert.Equal(t, first.Tag, second.Tag)
	assert.Equal(t, first.Define, second.Define)
}

func TestRunRecordsTiming(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := []time.Time{base, base.Add(25 * time.Millisecond)}
	s := New(&staticResolver{tag: "abc1234"}, Options{})
	s.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	got := s.Run(context.Background(), define.NewSet())
	assert.Equal(t, base, got.At)
	assert.Equal(t, 25*time.Millisecond, got.Duration)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRunIgnoresDiagnosticWriteFailure(t *testing.T) {
	env := define.NewSet()
	got := New(&staticResolver{tag: "abc1234"}, Options{Diagnostics: failingWriter{}}).Run(context.Background(), env)
	assert.Equal(t, "abc1234", got.Tag)
	assert.Equal(t, 1, env.Len())
}
