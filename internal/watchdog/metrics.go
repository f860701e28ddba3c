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

package watchdog

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for a Watchdog. A nil *Metrics is
// always safe: every call site guards on it before touching a collector.
type Metrics struct {
	ReconnectsSucceeded prometheus.Counter
	ReconnectsFailed    prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconnectsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_watchdog_reconnects_succeeded_total",
			Help: "Number of reconnect attempts that succeeded.",
		}),
		ReconnectsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertr_watchdog_reconnects_failed_total",
			Help: "Number of reconnect attempts that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ReconnectsSucceeded, m.ReconnectsFailed)
	}
	return m
}

func (w *Watchdog) metricsReconnectSuccess() {
	if w.metrics != nil {
		w.metrics.ReconnectsSucceeded.Inc()
	}
}

func (w *Watchdog) metricsReconnectFailure() {
	if w.metrics != nil {
		w.metrics.ReconnectsFailed.Inc()
	}
}
