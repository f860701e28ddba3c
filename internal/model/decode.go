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

package model

import (
	"encoding/json"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

// rawSensor and rawAlert keep alertLevels as raw JSON so ValidateAlertLevels
// can produce its bit-for-bit error strings instead of a generic
// json.Unmarshal type-mismatch error.
type rawSensor struct {
	NodeID           int             `json:"nodeId"`
	SensorID         int             `json:"sensorId"`
	RemoteSensorID   int             `json:"remoteSensorId"`
	AlertDelay       int             `json:"alertDelay"`
	AlertLevels      json.RawMessage `json:"alertLevels"`
	Description      string          `json:"description"`
	LastStateUpdated int             `json:"lastStateUpdated"`
	State            int             `json:"state"`
}

type rawAlert struct {
	NodeID        int             `json:"nodeId"`
	AlertID       int             `json:"alertId"`
	RemoteAlertID int             `json:"remoteAlertId"`
	AlertLevels   json.RawMessage `json:"alertLevels"`
	Description   string          `json:"description"`
}

type rawSensorAlert struct {
	TimeReceived   int64           `json:"timeReceived"`
	RulesActivated bool            `json:"rulesActivated"`
	SensorID       int             `json:"sensorId"`
	State          int             `json:"state"`
	AlertLevels    json.RawMessage `json:"alertLevels"`
	Description    string          `json:"description"`
	DataTransfer   bool            `json:"dataTransfer"`
	Data           map[string]any  `json:"data"`
	ChangeState    bool            `json:"changeState"`
}

// decodeList pulls one of a status payload's six top-level sequences out of
// fields, keeping the three failure modes distinct on the wire: a missing
// key is "received status invalid", a present-but-not-a-list value is
// "<key> not of type list", and an element that fails to convert is
// "received <kind> invalid".
func decodeList[T any](fields map[string]json.RawMessage, key, kind string) ([]T, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, liberr.New(liberr.CodeProtocol, "received status invalid")
	}

	// A JSON null unmarshals into a nil slice without error; it is not a
	// list either.
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, liberr.New(liberr.CodeProtocol, "%s not of type list", key)
	}

	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			return nil, liberr.New(liberr.CodeProtocol, "received %s invalid", kind)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeSnapshot validates and parses a status request payload into a
// Snapshot. All six collections must be present (possibly empty); every
// Sensor's and Alert's alertLevels field is validated as a list of ints.
func DecodeSnapshot(serverTime int64, raw json.RawMessage) (*Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "received status invalid")
	}

	options, err := decodeList[Option](fields, "options", "option")
	if err != nil {
		return nil, err
	}
	nodes, err := decodeList[Node](fields, "nodes", "node")
	if err != nil {
		return nil, err
	}
	rawSensors, err := decodeList[rawSensor](fields, "sensors", "sensor")
	if err != nil {
		return nil, err
	}
	managers, err := decodeList[Manager](fields, "managers", "manager")
	if err != nil {
		return nil, err
	}
	rawAlerts, err := decodeList[rawAlert](fields, "alerts", "alert")
	if err != nil {
		return nil, err
	}
	alertLevels, err := decodeList[AlertLevel](fields, "alertLevels", "alertLevel")
	if err != nil {
		return nil, err
	}

	sensors := make([]Sensor, 0, len(rawSensors))
	for _, rs := range rawSensors {
		levels, err := ValidateAlertLevels(rs.AlertLevels)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, Sensor{
			NodeID:           rs.NodeID,
			SensorID:         rs.SensorID,
			RemoteSensorID:   rs.RemoteSensorID,
			AlertDelay:       rs.AlertDelay,
			AlertLevels:      levels,
			Description:      rs.Description,
			LastStateUpdated: rs.LastStateUpdated,
			State:            rs.State,
		})
	}

	alerts := make([]Alert, 0, len(rawAlerts))
	for _, ra := range rawAlerts {
		levels, err := ValidateAlertLevels(ra.AlertLevels)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, Alert{
			NodeID:        ra.NodeID,
			AlertID:       ra.AlertID,
			RemoteAlertID: ra.RemoteAlertID,
			AlertLevels:   levels,
			Description:   ra.Description,
		})
	}

	return &Snapshot{
		ServerTime:  serverTime,
		Options:     options,
		Nodes:       nodes,
		Sensors:     sensors,
		Managers:    managers,
		Alerts:      alerts,
		AlertLevels: alertLevels,
	}, nil
}

// DecodeSensorAlert validates and parses a sensoralert request payload.
func DecodeSensorAlert(raw json.RawMessage) (*SensorAlert, error) {
	var rsa rawSensorAlert
	if err := json.Unmarshal(raw, &rsa); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "received sensoralert invalid")
	}

	levels, err := ValidateAlertLevels(rsa.AlertLevels)
	if err != nil {
		return nil, err
	}

	data := rsa.Data
	if !rsa.DataTransfer {
		data = map[string]any{}
	} else if data == nil {
		data = map[string]any{}
	}

	return &SensorAlert{
		TimeReceived:   rsa.TimeReceived,
		RulesActivated: rsa.RulesActivated,
		SensorID:       rsa.SensorID,
		State:          rsa.State,
		AlertLevels:    levels,
		Description:    rsa.Description,
		DataTransfer:   rsa.DataTransfer,
		Data:           data,
		ChangeState:    rsa.ChangeState,
	}, nil
}

// StateChange is the parsed payload of a statechange request.
type StateChange struct {
	SensorID int
	State    int
}

// DecodeStateChange validates and parses a statechange request payload.
func DecodeStateChange(raw json.RawMessage) (*StateChange, error) {
	var sc struct {
		SensorID *int `json:"sensorId"`
		State    *int `json:"state"`
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "received statechange invalid")
	}
	if sc.SensorID == nil || sc.State == nil {
		return nil, liberr.New(liberr.CodeProtocol, "received statechange invalid")
	}
	return &StateChange{SensorID: *sc.SensorID, State: *sc.State}, nil
}
