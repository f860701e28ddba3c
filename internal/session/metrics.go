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

package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for a Session. A nil *Metrics is
// always safe: every call site guards on it before touching a collector.
type Metrics struct {
	HandshakesSucceeded prometheus.Counter
	HandshakesFailed    prometheus.Counter
	Reconnects          prometheus.Counter
	MessagesHandled     prometheus.Counter
	Disconnects         prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HandshakesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_session_handshakes_succeeded_total",
			Help: "Number of successful handshakes.",
		}),
		HandshakesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_session_handshakes_failed_total",
			Help: "Number of failed handshake attempts.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_session_reconnects_total",
			Help: "Number of Reconnect() calls.",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_session_messages_handled_total",
			Help: "Number of server-initiated messages successfully handled.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_session_disconnects_total",
			Help: "Number of transitions into the disconnected state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.HandshakesSucceeded, m.HandshakesFailed, m.Reconnects, m.MessagesHandled, m.Disconnects)
	}
	return m
}

func (s *Session) metricsHandshakeSuccess() {
	if s.metrics != nil {
		s.metrics.HandshakesSucceeded.Inc()
	}
}

func (s *Session) metricsHandshakeFailure() {
	if s.metrics != nil {
		s.metrics.HandshakesFailed.Inc()
	}
}

func (s *Session) metricsReconnect() {
	if s.metrics != nil {
		s.metrics.Reconnects.Inc()
	}
}

func (s *Session) metricsMessageHandled() {
	if s.metrics != nil {
		s.metrics.MessagesHandled.Inc()
	}
}

func (s *Session) metricsDisconnect() {
	if s.metrics != nil {
		s.metrics.Disconnects.Inc()
	}
}
