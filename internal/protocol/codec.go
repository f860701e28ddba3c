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

package protocol

import (
	"bytes"
	"encoding/json"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

// BUFSIZE is the conventional single-read chunk size. A message is expected
// to fit in one chunk; larger messages are a protocol violation this codec
// does not attempt to recover from.
const BUFSIZE = 16384

// Encode serializes a client message: clientTime is stamped with now(),
// message is lowercased implicitly by the caller passing a lowercase label,
// and payload is marshaled as-is.
func Encode(now func() int64, message string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "encode payload for %q", message)
	}

	env := Envelope{
		ClientTime: now(),
		Message:    message,
		Payload:    raw,
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "encode envelope for %q", message)
	}
	return out, nil
}

// EncodeError serializes a best-effort error reply under the given message
// label, always the originating exchange's own label.
func EncodeError(now func() int64, message string, reason string) ([]byte, error) {
	env := Envelope{ClientTime: now(), Message: message, Error: reason}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "encode error envelope for %q", message)
	}
	return out, nil
}

// Decode trims surrounding whitespace and decodes exactly one Envelope,
// validating the required envelope fields are present: "message" and
// exactly one of "payload"/"error", plus one of "clientTime"/"serverTime".
func Decode(data []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, liberr.New(liberr.CodeProtocol, "empty message")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "decode envelope")
	}

	if _, ok := raw["message"]; !ok {
		return nil, liberr.New(liberr.CodeProtocol, "missing required field 'message'")
	}
	_, hasPayload := raw["payload"]
	_, hasError := raw["error"]
	if hasPayload == hasError {
		return nil, liberr.New(liberr.CodeProtocol, "exactly one of 'payload' or 'error' required")
	}
	_, hasClientTime := raw["clientTime"]
	_, hasServerTime := raw["serverTime"]
	if !hasClientTime && !hasServerTime {
		return nil, liberr.New(liberr.CodeProtocol, "missing required field 'clientTime' or 'serverTime'")
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "decode envelope")
	}
	return &env, nil
}

// IsError reports whether an Envelope carries a top-level error string
// rather than a payload.
func IsError(env *Envelope) bool {
	return env != nil && env.Error != ""
}

// DecodePayload unmarshals an Envelope's raw payload into dst. Call sites
// know the expected shape from the envelope's message label; this just
// centralizes the nil/empty-payload check so they don't each repeat it.
func DecodePayload(env *Envelope, dst any) error {
	if env == nil || len(env.Payload) == 0 {
		return liberr.New(liberr.CodeProtocol, "message %q carries no payload", envMessage(env))
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return liberr.Wrap(liberr.CodeProtocol, err, "decode payload for %q", envMessage(env))
	}
	return nil
}

func envMessage(env *Envelope) string {
	if env == nil {
		return ""
	}
	return env.Message
}
