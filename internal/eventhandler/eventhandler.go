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

// Package eventhandler defines the boundary between the session and
// whatever consumes decoded world-state: status snapshots, sensor alerts,
// state changes, and the coarse "something happened" lifecycle signal.
package eventhandler

import "github.com/dcmr/alertr-manager/internal/model"

// Handler receives decoded protocol events from a Session. The three
// Received* methods return false to signal the session that handling
// failed; that failure is session-terminating. HandleEvent is the
// generic "something changed" lifecycle signal, fired after a connection
// is established, after any message is fully processed, and on disconnect.
type Handler interface {
	ReceivedStatusUpdate(snapshot *model.Snapshot) bool
	ReceivedSensorAlert(serverTime int64, alert *model.SensorAlert) bool
	ReceivedStateChange(serverTime int64, change *model.StateChange) bool
	HandleEvent()
}
