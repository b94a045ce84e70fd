// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger is this module's structured logging facade: one
// component-leveled sink, fed by a buffered job queue and drained by a
// single printer goroutine so that a slow or blocking Sink never stalls a
// Monitor's probe loop or a Cluster's selection gate.
package logger

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
)

const (
	jobBufferSize            = 100
	logSinkPathEnvVar        = "MONGODB_LOG_PATH"
	maxDocumentLengthEnvVar  = "MONGODB_LOG_MAX_DOCUMENT_LENGTH"
	logSinkPathStdOut        = "stdout"
	logSinkPathStdErr        = "stderr"
)

// DefaultMaxDocumentLength bounds how many bytes of a dumped document a
// message may contribute before TruncationSuffix is appended.
const DefaultMaxDocumentLength = 1000

// TruncationSuffix marks a value that was cut short to fit
// DefaultMaxDocumentLength (or its override). It does not count toward the
// length limit itself.
const TruncationSuffix = "..."

// LogSink is the subset of go-logr/logr's LogSink this module depends on:
// one level-tagged message plus an alternating key/value list.
type LogSink interface {
	Info(level int, msg string, keysAndValues ...interface{})
}

type job struct {
	level Level
	msg   ComponentMessage
}

// Logger dispatches ComponentMessages to a Sink, gated per-Component by
// ComponentLevels.
type Logger struct {
	ComponentLevels   map[Component]Level
	Sink              LogSink
	MaxDocumentLength uint

	jobs      chan job
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New constructs a Logger. componentLevels, if non-nil, takes priority over
// any MONGODB_LOG_* environment variables; maxDocumentLength of 0 falls
// back to the environment, then DefaultMaxDocumentLength; a nil sink falls
// back to MONGODB_LOG_PATH, then stderr.
func New(sink LogSink, maxDocumentLength uint, componentLevels map[Component]Level) *Logger {
	l := &Logger{
		ComponentLevels: selectComponentLevels(
			func() map[Component]Level { return componentLevels },
			getEnvComponentLevels,
		),
		MaxDocumentLength: selectMaxDocumentLength(
			func() uint { return maxDocumentLength },
			getEnvMaxDocumentLength,
		),
		Sink: selectLogSink(
			func() LogSink { return sink },
			getEnvLogSink,
		),
		jobs: make(chan job, jobBufferSize),
	}
	go l.run()
	return l
}

// Default returns an all-off Logger: every component suppressed unless the
// environment overrides it. Safe to use as the Settings zero value.
func Default() *Logger {
	return New(nil, 0, nil)
}

// Close stops the printer goroutine. Idempotent, and safe to race with a
// concurrent Print: a Print that loses the race is simply dropped instead
// of panicking on a closed channel.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closeMu.Lock()
		defer l.closeMu.Unlock()
		l.closed = true
		close(l.jobs)
	})
}

// Is reports whether level is enabled for component.
func (l *Logger) Is(level Level, component Component) bool {
	return l.ComponentLevels[component] >= level
}

// Print enqueues msg at level for the printer goroutine. If the queue is
// full, msg is replaced with a CommandMessageDropped rather than blocking
// the caller — a probe or selection attempt must never stall because
// logging is backed up.
func (l *Logger) Print(level Level, msg ComponentMessage) {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.jobs <- job{level, msg}:
	default:
		select {
		case l.jobs <- job{level, CommandMessageDropped{Dropped: msg}}:
		default:
		}
	}
}

func (l *Logger) run() {
	for j := range l.jobs {
		if !l.Is(j.level, j.msg.Component()) {
			continue
		}
		if l.Sink == nil {
			continue
		}
		l.Sink.Info(int(j.level)-DiffToInfo, j.msg.Message(), j.msg.Serialize(l.MaxDocumentLength)...)
	}
}

// dump renders v with go-spew, the way this module inspects any
// non-trivial value it logs (there being no BSON document to stringify,
// per spec.md §1's boundary around encoding).
func dump(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return strings.TrimSpace(spew.Sdump(v))
}

// truncate cuts str to at most width bytes, appending TruncationSuffix if
// it did, taking care not to split a multi-byte rune.
func truncate(str string, width uint) string {
	if width == 0 || len(str) <= int(width) {
		return str
	}

	newStr := str[:width]
	if newStr[len(newStr)-1]&0xC0 == 0xC0 {
		return newStr[:len(newStr)-1] + TruncationSuffix
	}
	if newStr[len(newStr)-1]&0xC0 == 0x80 {
		for i := len(newStr) - 1; i >= 0; i-- {
			if newStr[i]&0xC0 == 0xC0 {
				return newStr[:i] + TruncationSuffix
			}
		}
	}

	return newStr + TruncationSuffix
}

func getEnvMaxDocumentLength() uint {
	max := os.Getenv(maxDocumentLengthEnvVar)
	if max == "" {
		return 0
	}
	maxUint, err := strconv.ParseUint(max, 10, 32)
	if err != nil {
		return 0
	}
	return uint(maxUint)
}

func selectMaxDocumentLength(getLen ...func() uint) uint {
	for _, get := range getLen {
		if n := get(); n != 0 {
			return n
		}
	}
	return DefaultMaxDocumentLength
}

type osSink struct {
	w *os.File
}

func newOSSink(w *os.File) *osSink { return &osSink{w: w} }

func (s *osSink) Info(level int, msg string, keysAndValues ...interface{}) {
	parts := make([]string, 0, len(keysAndValues)/2+1)
	parts = append(parts, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		parts = append(parts, toKV(keysAndValues[i], keysAndValues[i+1]))
	}
	_, _ = s.w.WriteString(strings.Join(parts, " ") + "\n")
}

func toKV(k, v interface{}) string {
	return spewOneLine(k) + "=" + spewOneLine(v)
}

func spewOneLine(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(spew.Sprint(v))
}

// getEnvLogSink checks MONGODB_LOG_PATH for "stdout", "stderr", or a file
// path, falling back to stderr if unset.
func getEnvLogSink() LogSink {
	path := os.Getenv(logSinkPathEnvVar)
	switch strings.ToLower(path) {
	case logSinkPathStdErr, "":
		return newOSSink(os.Stderr)
	case logSinkPathStdOut:
		return newOSSink(os.Stdout)
	default:
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return newOSSink(os.Stderr)
		}
		return newOSSink(f)
	}
}

func selectLogSink(getSink ...func() LogSink) LogSink {
	for _, get := range getSink {
		if sink := get(); sink != nil {
			return sink
		}
	}
	return newOSSink(os.Stderr)
}
