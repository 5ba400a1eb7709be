// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingFileHandler writes records to a size- and age-rotated log file,
// letting the daemon run unattended without a log shipper tailing an
// ever-growing file.
type RotatingFileHandler struct {
	mu sync.Mutex
	lj *lumberjack.Logger
}

// NewRotatingFileHandler opens (or creates) path, rotating it once it
// exceeds maxSizeMB and keeping at most maxBackups old copies for
// maxAgeDays.
func NewRotatingFileHandler(path string, maxSizeMB, maxBackups, maxAgeDays int) *RotatingFileHandler {
	return &RotatingFileHandler{
		lj: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		},
	}
}

func (h *RotatingFileHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.lj, "%s[%s] %s%s\n", r.Lvl.String(), r.Time.Format(time.RFC3339), r.Msg, formatCtx(r.Ctx))
	return err
}

func (h *RotatingFileHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lj.Close()
}

func formatCtx(ctx []interface{}) string {
	s := ""
	for i := 0; i+1 < len(ctx); i += 2 {
		s += fmt.Sprintf(" %v=%v", ctx[i], ctx[i+1])
	}
	return s
}

// MultiHandler fans a record out to several handlers, e.g. a terminal
// handler plus a RotatingFileHandler.
type MultiHandler []Handler

func (m MultiHandler) Log(r *Record) error {
	var firstErr error
	for _, h := range m {
		if err := h.Log(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
