/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger is a small logrus-backed structured logging facade shared
// by the session, watchdog and receiver loops: every entry carries a
// "component" field and, where relevant, a transaction id.
package logger

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context attached to a single log entry.
type Fields map[string]any

// Logger is the minimal structured logging surface this module needs.
type Logger interface {
	SetLevel(lvl logrus.Level)
	GetLevel() logrus.Level

	Debug(message string, fields Fields)
	Info(message string, fields Fields)
	Warning(message string, fields Fields)
	Error(message string, err error, fields Fields)

	// WithComponent returns a Logger that stamps every entry with the
	// given component name, e.g. "session", "watchdog", "receiver".
	WithComponent(component string) Logger
}

func defaultFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		QuoteEmptyFields: true,
	}
}

type lgr struct {
	m         sync.RWMutex
	base      *logrus.Logger
	component string
}

// New builds a Logger writing to out at the given minimum level. A nil out
// defaults to the logrus default (os.Stderr).
func New(out io.Writer, lvl logrus.Level) Logger {
	base := logrus.New()
	base.SetFormatter(defaultFormatter())
	base.SetLevel(lvl)
	if out != nil {
		base.SetOutput(out)
	}
	return &lgr{base: base}
}

func (l *lgr) SetLevel(lvl logrus.Level) {
	l.m.Lock()
	defer l.m.Unlock()
	l.base.SetLevel(lvl)
}

func (l *lgr) GetLevel() logrus.Level {
	l.m.RLock()
	defer l.m.RUnlock()
	return l.base.GetLevel()
}

func (l *lgr) WithComponent(component string) Logger {
	l.m.RLock()
	defer l.m.RUnlock()
	return &lgr{base: l.base, component: component}
}

func (l *lgr) entry(fields Fields) *logrus.Entry {
	f := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	if l.component != "" {
		f["component"] = l.component
	}
	return l.base.WithFields(f)
}

func (l *lgr) Debug(message string, fields Fields) {
	l.entry(fields).Debug(message)
}

func (l *lgr) Info(message string, fields Fields) {
	l.entry(fields).Info(message)
}

func (l *lgr) Warning(message string, fields Fields) {
	l.entry(fields).Warning(message)
}

func (l *lgr) Error(message string, err error, fields Fields) {
	e := l.entry(fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(message)
}
