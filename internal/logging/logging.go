// Copyright 2024 Humanitec
//
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

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// SimpleHandler is a minimal slog.Handler that writes "level: message
// attr=value ..." lines to Writer, gated by Level. The CLI's root command
// installs it as slog's default handler (internal/output's Console does
// not use it) rather than routing through a heavier structured-logging
// library, since item and pipeline
// code only ever logs single human-readable lines.
type SimpleHandler struct {
	Writer io.Writer
	Level  slog.Leveler

	mu    sync.Mutex
	attrs []slog.Attr
}

func (h *SimpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

func (h *SimpleHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", record.Level.String(), record.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

// WithAttrs returns a handler that appends attrs to every record it
// subsequently handles, sharing Writer and Level with h.
func (h *SimpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := &SimpleHandler{Writer: h.Writer, Level: h.Level}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *SimpleHandler) WithGroup(_ string) slog.Handler {
	// group scoping isn't worth the complexity for single-line CLI output
	return h
}

var _ slog.Handler = (*SimpleHandler)(nil)
