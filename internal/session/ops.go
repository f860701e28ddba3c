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

import (
	"strings"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/protocol"
)

// SendOption pushes a configuration change via the option request.
func (s *Session) SendOption(optionType string, value float64, timeDelay int) error {
	return s.clientRequest(protocol.MessageOption, protocol.OptionRequestPayload{
		Type:       protocol.TypeRequest,
		OptionType: optionType,
		Value:      value,
		TimeDelay:  timeDelay,
	})
}

// SendKeepalive pings the server to refresh liveness without otherwise
// changing any state.
func (s *Session) SendKeepalive() error {
	return s.clientRequest(protocol.MessagePing, protocol.PingRequestPayload{Type: protocol.TypeRequest})
}

// clientRequest runs the full RTS/CTS/request/response cycle for a
// client-initiated operation. Any mid-transaction failure after the RTS/CTS
// arbitration succeeds cleans up the session (disconnects) before
// propagating the error.
func (s *Session) clientRequest(message string, payload any) error {
	s.acquireForTransaction()
	if err := s.initiateTransaction(message); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.send(message, payload); err != nil {
		s.disconnect()
		return err
	}

	resp, err := s.recv(requestRecvTimeout)
	if err != nil {
		s.disconnect()
		return err
	}
	if protocol.IsError(resp) {
		s.disconnect()
		return liberr.New(liberr.CodeProtocol, "%s rejected: %s", message, resp.Error)
	}
	if !strings.EqualFold(resp.Message, message) {
		s.sendError(resp.Message, message+" message expected")
		s.disconnect()
		return liberr.New(liberr.CodeProtocol, "%s message expected, got %q", message, resp.Message)
	}

	var rp protocol.ResponsePayload
	if err := protocol.DecodePayload(resp, &rp); err != nil || rp.Type != protocol.TypeResponse {
		s.sendError(resp.Message, "response expected")
		s.disconnect()
		return liberr.New(liberr.CodeProtocol, "%s response malformed", message)
	}
	if !strings.EqualFold(rp.Result, protocol.ResultOK) {
		s.disconnect()
		return liberr.New(liberr.CodeProtocol, "%s result %q", message, rp.Result)
	}

	s.touchLastRecv()
	return nil
}

// Reconnect tears down any existing connection and re-runs the handshake.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	s.disconnect()
	s.mu.Unlock()
	s.metricsReconnect()
	return s.Initialize()
}

// Close tears down the session. Calling Close on an already-idle session
// is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
}
