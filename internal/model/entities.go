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

// Package model holds the replicated world-state entities (options, nodes,
// sensors, managers, alerts, alert levels) and the sensor-alert / status
// payload shapes the session hands to the event handler.
package model

// Option is a single server-side configuration knob.
type Option struct {
	Type  string  `json:"type" validate:"required"`
	Value float64 `json:"value"`
}

// Node describes one manager/client node known to the server.
type Node struct {
	NodeID    int     `json:"nodeId"`
	Hostname  string  `json:"hostname"`
	NodeType  string  `json:"nodeType"`
	Instance  string  `json:"instance"`
	Connected int     `json:"connected"`
	Version   float64 `json:"version"`
	Rev       int     `json:"rev"`
	Username  string  `json:"username"`
}

// Sensor describes a single monitored input.
type Sensor struct {
	NodeID            int    `json:"nodeId"`
	SensorID          int    `json:"sensorId"`
	RemoteSensorID    int    `json:"remoteSensorId"`
	AlertDelay        int    `json:"alertDelay"`
	AlertLevels       []int  `json:"alertLevels"`
	Description       string `json:"description"`
	LastStateUpdated  int    `json:"lastStateUpdated"`
	State             int    `json:"state"`
}

// Manager describes a manager node attached to a sensor/alert owner.
type Manager struct {
	NodeID      int    `json:"nodeId"`
	ManagerID   int    `json:"managerId"`
	Description string `json:"description"`
}

// Alert describes a configured alert.
type Alert struct {
	NodeID        int    `json:"nodeId"`
	AlertID       int    `json:"alertId"`
	RemoteAlertID int    `json:"remoteAlertId"`
	AlertLevels   []int  `json:"alertLevels"`
	Description   string `json:"description"`
}

// AlertLevel describes one severity level known to the server.
type AlertLevel struct {
	Level          int    `json:"level"`
	Name           string `json:"name"`
	TriggerAlways  int    `json:"triggerAlways"`
	RulesActivated bool   `json:"rulesActivated"`
}

// SensorAlert is a single server-pushed alert event. SensorID of -1 denotes
// "no responsible sensor"; Data is always an empty map when DataTransfer is
// false.
type SensorAlert struct {
	TimeReceived   int64          `json:"timeReceived"`
	RulesActivated bool           `json:"rulesActivated"`
	SensorID       int            `json:"sensorId"`
	State          int            `json:"state"`
	AlertLevels    []int          `json:"alertLevels"`
	Description    string         `json:"description"`
	DataTransfer   bool           `json:"dataTransfer"`
	Data           map[string]any `json:"data"`
	ChangeState    bool           `json:"changeState"`
}

// Snapshot is the full world-state push delivered by the status handler.
type Snapshot struct {
	ServerTime  int64
	Options     []Option
	Nodes       []Node
	Sensors     []Sensor
	Managers    []Manager
	Alerts      []Alert
	AlertLevels []AlertLevel
}
