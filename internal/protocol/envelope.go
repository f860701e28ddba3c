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

// Package protocol implements the wire framing of the manager-client
// protocol: one self-delimited JSON object per message, carrying a
// timestamped envelope around an rts/cts/request/response payload.
package protocol

import "encoding/json"

// PayloadType is the payload.type discriminator.
type PayloadType string

const (
	TypeRTS      PayloadType = "rts"
	TypeCTS      PayloadType = "cts"
	TypeRequest  PayloadType = "request"
	TypeResponse PayloadType = "response"
)

// Message labels used on the wire. Compared case-insensitively on receive,
// emitted lowercase on send.
const (
	MessageAuthentication = "authentication"
	MessageRegistration   = "registration"
	MessageStatus         = "status"
	MessageOption         = "option"
	MessagePing           = "ping"
	MessageSensorAlert    = "sensoralert"
	MessageStateChange    = "statechange"
)

// ResultOK is the only accepted value of payload.result on a response.
const ResultOK = "ok"

// Envelope is the top-level shape of every message:
//
//	{ "clientTime" | "serverTime": <int>, "message": <string>,
//	  "payload": <object> } | { ..., "error": <string> }
type Envelope struct {
	ClientTime int64           `json:"clientTime"`
	ServerTime int64           `json:"serverTime,omitempty"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RTSPayload is payload for type=rts / type=cts.
type RTSPayload struct {
	Type PayloadType `json:"type"`
	ID   uint32      `json:"id"`
}

// ResponsePayload is the generic {type:"response", result:"..."} shape used
// by authentication, registration, option, ping, status, sensoralert and
// statechange responses.
type ResponsePayload struct {
	Type   PayloadType `json:"type"`
	Result string      `json:"result,omitempty"`
}

// AuthRequestPayload is the authentication request payload.
type AuthRequestPayload struct {
	Type     PayloadType `json:"type"`
	Version  float64     `json:"version"`
	Rev      int         `json:"rev"`
	Username string      `json:"username"`
	Password string      `json:"password"`
}

// AuthResponsePayload is the authentication response payload.
type AuthResponsePayload struct {
	Type    PayloadType `json:"type"`
	Version float64     `json:"version"`
	Rev     int         `json:"rev"`
	Result  string      `json:"result"`
}

// RegistrationManager is the nested "manager" object of a registration request.
type RegistrationManager struct {
	Description string `json:"description"`
}

// RegistrationRequestPayload is the registration request payload.
type RegistrationRequestPayload struct {
	Type       PayloadType         `json:"type"`
	Hostname   string              `json:"hostname"`
	NodeType   string              `json:"nodeType"`
	Instance   string              `json:"instance"`
	Persistent int                 `json:"persistent"`
	Manager    RegistrationManager `json:"manager"`
}

// OptionRequestPayload is the sendOption request payload.
type OptionRequestPayload struct {
	Type       PayloadType `json:"type"`
	OptionType string      `json:"optionType"`
	Value      float64     `json:"value"`
	TimeDelay  int         `json:"timeDelay"`
}

// PingRequestPayload is the sendKeepalive request payload (empty body).
type PingRequestPayload struct {
	Type PayloadType `json:"type"`
}
