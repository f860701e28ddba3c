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

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one Transport. A nil *Metrics
// is always safe to use: every transport call guards on it being non-nil
// before touching a collector, so instrumentation is entirely optional.
type Metrics struct {
	ConnectAttempts prometheus.Counter
	ConnectErrors   prometheus.Counter
	SendErrors      prometheus.Counter
	RecvErrors      prometheus.Counter
	Connected       prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_transport_connect_attempts_total",
			Help: "Number of TLS connect attempts.",
		}),
		ConnectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_transport_connect_errors_total",
			Help: "Number of failed TLS connect attempts.",
		}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_transport_send_errors_total",
			Help: "Number of failed sends.",
		}),
		RecvErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_transport_recv_errors_total",
			Help: "Number of failed (non-timeout) receives.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertr_transport_connected",
			Help: "1 if the transport currently holds an open connection, else 0.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectAttempts, m.ConnectErrors, m.SendErrors, m.RecvErrors, m.Connected)
	}
	return m
}

func (t *Transport) metricsConnectAttempt() {
	if t.metrics != nil {
		t.metrics.ConnectAttempts.Inc()
	}
}

func (t *Transport) metricsConnectError() {
	if t.metrics != nil {
		t.metrics.ConnectErrors.Inc()
	}
}

func (t *Transport) metricsSendError() {
	if t.metrics != nil {
		t.metrics.SendErrors.Inc()
	}
}

func (t *Transport) metricsRecvError() {
	if t.metrics != nil {
		t.metrics.RecvErrors.Inc()
	}
}

func (t *Transport) metricsSetConnected(connected bool) {
	if t.metrics == nil {
		return
	}
	if connected {
		t.metrics.Connected.Set(1)
	} else {
		t.metrics.Connected.Set(0)
	}
}
