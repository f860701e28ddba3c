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

// Package notifier delivers the watchdog's escalating communication-loss
// notifications. The implementations are an SMTP mailer and a discarding
// Noop; the watchdog depends on the Notifier interface so tests can
// substitute a recorder.
package notifier

// Notifier is how the watchdog reports communication trouble. Both methods
// are best-effort: a Notifier must never block the watchdog's tick loop on
// a slow or unreachable mail relay for longer than its own send timeout,
// and failures are logged, not propagated.
type Notifier interface {
	// SendCommunicationAlert fires once per notifyEvery consecutive
	// reconnect failures, carrying the current retry count.
	SendCommunicationAlert(retryCount int)
	// SendCommunicationAlertClear fires each time the watchdog's reconnect
	// loop ends with a successful reconnect.
	SendCommunicationAlertClear()
}
