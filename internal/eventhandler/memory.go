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

package eventhandler

import (
	"sync"

	"github.com/dcmr/alertr-manager/internal/logger"
	"github.com/dcmr/alertr-manager/internal/model"
)

// Memory is an in-process Handler keeping the latest snapshot and the
// sensor alerts/state changes received since construction. It never fails
// a Received* call; it exists as the reference wiring for callers that
// don't need a persistent store (the CLI, tests).
type Memory struct {
	log logger.Logger

	mu           sync.Mutex
	snapshot     *model.Snapshot
	sensorAlerts []model.SensorAlert
	stateChanges []model.StateChange
	events       int
}

// NewMemory builds a Memory handler. log may be the nop logger.
func NewMemory(log logger.Logger) *Memory {
	return &Memory{log: log.WithComponent("eventhandler")}
}

func (m *Memory) ReceivedStatusUpdate(snapshot *model.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	m.log.Info("status snapshot received", logger.Fields{
		"sensors": len(snapshot.Sensors),
		"nodes":   len(snapshot.Nodes),
	})
	return true
}

func (m *Memory) ReceivedSensorAlert(serverTime int64, alert *model.SensorAlert) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensorAlerts = append(m.sensorAlerts, *alert)
	m.log.Info("sensor alert received", logger.Fields{
		"serverTime": serverTime,
		"sensorId":   alert.SensorID,
		"state":      alert.State,
	})
	return true
}

func (m *Memory) ReceivedStateChange(serverTime int64, change *model.StateChange) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateChanges = append(m.stateChanges, *change)
	m.log.Info("state change received", logger.Fields{
		"serverTime": serverTime,
		"sensorId":   change.SensorID,
		"state":      change.State,
	})
	return true
}

func (m *Memory) HandleEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

// Snapshot returns the most recently received world-state, or nil if none
// has arrived yet.
func (m *Memory) Snapshot() *model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// SensorAlerts returns a copy of every sensor alert received so far.
func (m *Memory) SensorAlerts() []model.SensorAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SensorAlert, len(m.sensorAlerts))
	copy(out, m.sensorAlerts)
	return out
}

// StateChanges returns a copy of every state change received so far.
func (m *Memory) StateChanges() []model.StateChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.StateChange, len(m.stateChanges))
	copy(out, m.stateChanges)
	return out
}

// Events returns how many times HandleEvent has fired.
func (m *Memory) Events() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}
