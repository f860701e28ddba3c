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

// Package receiver drives a Session's receive/dispatch loop on its own
// goroutine, re-entering it once per pace interval for as long as the
// session keeps disconnecting (a fresh handshake is the watchdog's job,
// not the receiver's).
package receiver

import "time"

// sessionConn is the subset of *session.Session the receiver drives.
type sessionConn interface {
	HandleCommunication()
}

const defaultPace = 1 * time.Second

// Receiver repeatedly calls HandleCommunication on a Session until Stop.
type Receiver struct {
	sess sessionConn
	pace time.Duration

	exit chan struct{}
	done chan struct{}
}

// Opt customizes a Receiver at construction.
type Opt func(*Receiver)

// WithPace overrides the 1s re-entry pace. Intended for tests.
func WithPace(d time.Duration) Opt { return func(r *Receiver) { r.pace = d } }

// New builds a Receiver over sess.
func New(sess sessionConn, opts ...Opt) *Receiver {
	r := &Receiver{
		sess: sess,
		pace: defaultPace,
		exit: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks, calling HandleCommunication and pausing pace between calls,
// until Stop is called. HandleCommunication itself blocks for as long as
// the session stays connected, so the pause only matters while the
// session is disconnected and waiting on the watchdog to reconnect.
func (r *Receiver) Run() {
	defer close(r.done)
	for {
		select {
		case <-r.exit:
			return
		default:
		}

		r.sess.HandleCommunication()

		select {
		case <-r.exit:
			return
		case <-time.After(r.pace):
		}
	}
}

// Stop signals Run to return and blocks until it has.
func (r *Receiver) Stop() {
	close(r.exit)
	<-r.done
}
