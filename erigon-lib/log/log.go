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

// Package log is erigon-lib's structured, leveled logger: package-level
// Info/Warn/Error/Debug/Crit calls taking a message followed by
// alternating key/value pairs, dispatched to one or more Handlers. It is
// a small, purpose-built fork of the log15 style erigon-lib has used
// since the geth days, not a general-purpose logging framework.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	default:
		return "?"
	}
}

// Record is a single log event handed to a Handler.
type Record struct {
	Time  time.Time
	Lvl   Lvl
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
}

// Handler processes a Record; Log must be safe for concurrent use.
type Handler interface {
	Log(r *Record) error
}

var (
	mu      sync.RWMutex
	handler Handler = StreamHandler(os.Stderr)
	level           = LvlInfo
)

// SetHandler replaces the root handler. Call once during process startup.
func SetHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

// SetLevel filters out records more verbose than lvl before they reach
// the handler.
func SetLevel(lvl Lvl) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
}

func dispatch(lvl Lvl, msg string, ctx []interface{}) {
	mu.RLock()
	h, min := handler, level
	mu.RUnlock()
	if lvl > min {
		return
	}
	r := &Record{Time: time.Now(), Lvl: lvl, Msg: msg, Ctx: ctx, Call: stack.Caller(2)}
	_ = h.Log(r)
}

func Crit(msg string, ctx ...interface{})  { dispatch(LvlCrit, msg, ctx); os.Exit(1) }
func Error(msg string, ctx ...interface{}) { dispatch(LvlError, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { dispatch(LvlWarn, msg, ctx) }
func Info(msg string, ctx ...interface{})  { dispatch(LvlInfo, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { dispatch(LvlDebug, msg, ctx) }

// levelColor are the log15-style ANSI codes for each level; only used
// when the handler's underlying file is a terminal.
var levelColor = map[Lvl]int{
	LvlCrit:  35, // magenta
	LvlError: 31, // red
	LvlWarn:  33, // yellow
	LvlInfo:  32, // green
	LvlDebug: 36, // cyan
}

// streamHandler formats records as "LVL[time] msg k=v k=v ..." to an
// io.Writer, same shape as erigon-lib's terminal handler. When w is a
// terminal, the level tag is ANSI-colored through go-colorable (needed
// on Windows consoles, a no-op passthrough elsewhere) via go-isatty's
// terminal detection; redirected to a file or pipe, output is plain.
type streamHandler struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

func StreamHandler(w *os.File) Handler {
	color := isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
	var out io.Writer = w
	if color {
		out = colorable.NewColorable(w)
	}
	return &streamHandler{w: out, color: color}
}

func (h *streamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	lvl := r.Lvl.String()
	if h.color {
		lvl = fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColor[r.Lvl], lvl)
	}
	fmt.Fprintf(h.w, "%s[%s] %s", lvl, r.Time.Format(time.RFC3339), r.Msg)
	for i := 0; i+1 < len(r.Ctx); i += 2 {
		fmt.Fprintf(h.w, " %v=%v", r.Ctx[i], r.Ctx[i+1])
	}
	fmt.Fprintln(h.w)
	return nil
}
