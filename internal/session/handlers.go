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
	stderrors "errors"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/model"
	"github.com/dcmr/alertr-manager/internal/protocol"
)

// wireReason strips the internal code/cause decoration off err, leaving the
// bare reason string the peer expects in an error reply (for example
// "alertLevels not of type list", not "protocol: alertLevels not...").
func wireReason(err error) string {
	var e *liberr.Error
	if stderrors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// The three handlers below always reply using env.Message, the label of
// the incoming request that is actually in scope. There is no other
// message variable in play here for one to go stale: a prior version of
// this exchange elsewhere reused a leftover identifier for its error
// replies and ended up echoing the wrong label back to the peer.

// handleStatus decodes and validates a status request, delivers the full
// snapshot to the event handler, then replies. Delivery happens before the
// reply.
func (s *Session) handleStatus(env *protocol.Envelope) error {
	snap, err := model.DecodeSnapshot(env.ServerTime, env.Payload)
	if err != nil {
		s.sendError(env.Message, wireReason(err))
		return err
	}
	if !s.handler.ReceivedStatusUpdate(snap) {
		s.sendError(env.Message, "handling received data failed")
		return liberr.New(liberr.CodeHandlerFailure, "status handler failed")
	}
	return s.send(env.Message, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK})
}

// handleSensorAlert decodes a sensoralert request, replies first, then
// delivers to the event handler. Handler failure is session-terminating.
func (s *Session) handleSensorAlert(env *protocol.Envelope) error {
	alert, err := model.DecodeSensorAlert(env.Payload)
	if err != nil {
		s.sendError(env.Message, wireReason(err))
		return err
	}
	alert.TimeReceived = s.now()

	if err := s.send(env.Message, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK}); err != nil {
		return err
	}
	if !s.handler.ReceivedSensorAlert(env.ServerTime, alert) {
		return liberr.New(liberr.CodeHandlerFailure, "sensoralert handler failed")
	}
	return nil
}

// handleStateChange decodes a statechange request, replies first, then
// delivers to the event handler. Handler failure is session-terminating.
func (s *Session) handleStateChange(env *protocol.Envelope) error {
	change, err := model.DecodeStateChange(env.Payload)
	if err != nil {
		s.sendError(env.Message, wireReason(err))
		return err
	}

	if err := s.send(env.Message, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK}); err != nil {
		return err
	}
	if !s.handler.ReceivedStateChange(env.ServerTime, change) {
		return liberr.New(liberr.CodeHandlerFailure, "statechange handler failed")
	}
	return nil
}
