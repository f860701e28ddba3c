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

// Package errors provides the typed error kinds used across the protocol
// engine. Every failure path that can drive a state transition returns one
// of these instead of a bare error, so callers can branch on Code rather
// than on string matching.
package errors

import (
	"fmt"
)

// Code identifies the behavioral kind of an error, independent of its
// message.
type Code uint16

const (
	CodeUnknown Code = iota
	CodeTransport
	CodeTransportTimeout
	CodeProtocol
	CodeVersionMismatch
	CodeAuthFailure
	CodeHandlerFailure
)

func (c Code) String() string {
	switch c {
	case CodeTransport:
		return "transport"
	case CodeTransportTimeout:
		return "transport-timeout"
	case CodeProtocol:
		return "protocol"
	case CodeVersionMismatch:
		return "version-mismatch"
	case CodeAuthFailure:
		return "auth-failure"
	case CodeHandlerFailure:
		return "handler-failure"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a behavioral Code, a message, and an
// optional parent cause. It implements the standard error interface plus
// Is/Unwrap so it composes with errors.Is/errors.As.
type Error struct {
	code   Code
	msg    string
	parent error
}

// New builds an Error of the given kind with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping an existing cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...), parent: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.parent != nil {
		return fmt.Sprintf("%s: %s: %s", e.code, e.msg, e.parent.Error())
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.parent
}

// Message returns the error's own message, without the code prefix or the
// wrapped cause. Callers that echo a reason back to the peer use this so
// the wire carries the bare protocol string.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Code returns the behavioral kind of this error.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Is reports whether target is an *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.code == t.code
}

// HasCode reports whether err is, or wraps, an *Error with the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
