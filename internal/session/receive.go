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
	"time"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/protocol"
)

// HandleCommunication drives the server-initiated receive/dispatch loop
// until the session disconnects: a clean peer close, a protocol violation,
// or an event handler failure. It holds the exclusivity token for the
// whole loop, releasing it only for the idle window between polls while no
// message has arrived. Callers (the receiver
// component) are expected to call this repeatedly.
func (s *Session) HandleCommunication() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		env, err := s.recv(idleRecvTimeout)
		if err != nil {
			if liberr.HasCode(err, liberr.CodeTransportTimeout) {
				s.mu.Unlock()
				time.Sleep(idleReleaseWait)
				s.mu.Lock()
				continue
			}
			s.disconnect()
			return
		}

		if protocol.IsError(env) {
			s.disconnect()
			return
		}

		var rts protocol.RTSPayload
		if err := protocol.DecodePayload(env, &rts); err != nil || rts.Type != protocol.TypeRTS {
			s.sendError(env.Message, "rts expected")
			s.disconnect()
			return
		}

		if err := s.send(env.Message, protocol.RTSPayload{Type: protocol.TypeCTS, ID: rts.ID}); err != nil {
			s.disconnect()
			return
		}

		req, err := s.recv(requestRecvTimeout)
		if err != nil {
			s.disconnect()
			return
		}
		if protocol.IsError(req) {
			s.disconnect()
			return
		}

		var reqType struct {
			Type protocol.PayloadType `json:"type"`
		}
		if err := protocol.DecodePayload(req, &reqType); err != nil || reqType.Type != protocol.TypeRequest {
			s.sendError(req.Message, "request expected")
			s.disconnect()
			return
		}

		var handleErr error
		switch {
		case strings.EqualFold(req.Message, protocol.MessageSensorAlert):
			handleErr = s.handleSensorAlert(req)
		case strings.EqualFold(req.Message, protocol.MessageStatus):
			handleErr = s.handleStatus(req)
		case strings.EqualFold(req.Message, protocol.MessageStateChange):
			handleErr = s.handleStateChange(req)
		default:
			s.sendError(req.Message, "unknown command/message type")
			handleErr = liberr.New(liberr.CodeProtocol, "unknown command/message type %q", req.Message)
		}

		if handleErr != nil {
			s.disconnect()
			return
		}

		s.touchLastRecv()
		s.metricsMessageHandled()
		s.handler.HandleEvent()
	}
}
