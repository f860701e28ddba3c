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

// Package watchdog polls a Session for liveness, reconnecting on failure
// and sending a staleness-triggered keepalive, escalating a notification
// every fifth consecutive reconnect failure. A failed keepalive starts the
// reconnect loop but is not itself counted.
package watchdog

import (
	"time"

	"github.com/dcmr/alertr-manager/internal/logger"
	"github.com/dcmr/alertr-manager/internal/notifier"
)

// sessionConn is the subset of *session.Session the watchdog drives.
type sessionConn interface {
	Connected() bool
	LastRecv() time.Time
	Reconnect() error
	SendKeepalive() error
}

const (
	defaultTickInterval = 5 * time.Second
	defaultTickPoll     = 1 * time.Second
	notifyEvery         = 5
)

// Watchdog owns the reconnect-and-keepalive loop for one Session.
type Watchdog struct {
	sess         sessionConn
	notifier     notifier.Notifier
	log          logger.Logger
	metrics      *Metrics
	pingInterval time.Duration

	tickInterval time.Duration
	tickPoll     time.Duration

	exit chan struct{}
	done chan struct{}
}

// Opt customizes a Watchdog at construction.
type Opt func(*Watchdog)

// WithLogger attaches a structured logger. Defaults to a discarding logger.
func WithLogger(l logger.Logger) Opt {
	return func(w *Watchdog) { w.log = l.WithComponent("watchdog") }
}

// WithMetrics attaches a Prometheus instrumentation hook. A nil *Metrics is
// always safe; omit this option to run uninstrumented.
func WithMetrics(m *Metrics) Opt { return func(w *Watchdog) { w.metrics = m } }

// WithTickIntervals overrides the 5s tick / 1s poll pace. Intended for
// tests; production callers should rely on the defaults.
func WithTickIntervals(tick, poll time.Duration) Opt {
	return func(w *Watchdog) { w.tickInterval = tick; w.tickPoll = poll }
}

// New builds a Watchdog over sess. pingInterval is the staleness threshold:
// once now()-LastRecv() exceeds it, the watchdog sends a keepalive.
func New(sess sessionConn, notif notifier.Notifier, pingInterval time.Duration, opts ...Opt) *Watchdog {
	w := &Watchdog{
		sess:         sess,
		notifier:     notif,
		log:          logger.Nop(),
		pingInterval: pingInterval,
		tickInterval: defaultTickInterval,
		tickPoll:     defaultTickPoll,
		exit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks, ticking every 5 seconds (realized as five 1-second polls of
// the exit flag so Stop reacts within a second) until Stop is called.
func (w *Watchdog) Run() {
	defer close(w.done)
	for {
		if w.waitTick() {
			return
		}
		w.tick()
	}
}

// Stop signals Run to return and blocks until it has.
func (w *Watchdog) Stop() {
	close(w.exit)
	<-w.done
}

func (w *Watchdog) tick() {
	if !w.sess.Connected() {
		w.reconnectLoop()
		return
	}

	if time.Since(w.sess.LastRecv()) <= w.pingInterval {
		return
	}

	if err := w.sess.SendKeepalive(); err != nil {
		w.log.Warning("keepalive failed, reconnecting", logger.Fields{"error": err.Error()})
		w.reconnectLoop()
	}
}

// reconnectLoop retries Reconnect once per tick until it succeeds or Stop
// fires, notifying every fifth consecutive failure and clearing the alert
// on the eventual success.
func (w *Watchdog) reconnectLoop() {
	retries := 0
	for {
		select {
		case <-w.exit:
			return
		default:
		}

		if err := w.sess.Reconnect(); err == nil {
			w.notifier.SendCommunicationAlertClear()
			w.metricsReconnectSuccess()
			return
		}

		retries++
		w.metricsReconnectFailure()
		w.log.Warning("reconnect failed", logger.Fields{"retries": retries})
		if retries%notifyEvery == 0 {
			w.notifier.SendCommunicationAlert(retries)
		}

		if w.waitTick() {
			return
		}
	}
}

// waitTick blocks for one full tickInterval, polled in tickPoll increments
// so Stop is noticed within tickPoll instead of the full interval. Reports
// whether it returned early because Stop fired.
func (w *Watchdog) waitTick() bool {
	for i := 0; i < int(w.tickInterval/w.tickPoll); i++ {
		select {
		case <-w.exit:
			return true
		case <-time.After(w.tickPoll):
		}
	}
	return false
}
