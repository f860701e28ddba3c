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

// Initialize runs the full handshake: connect, authenticate, register, and
// take the initial status push. On success the session becomes Connected
// and the lifecycle event fires once, outside the exclusivity window.
// Failure anywhere closes the transport and leaves the session Idle.
func (s *Session) Initialize() error {
	s.mu.Lock()
	s.state = StateHandshaking

	if err := s.tr.Connect(); err != nil {
		_ = s.tr.Close()
		s.state = StateIdle
		s.mu.Unlock()
		s.metricsHandshakeFailure()
		return err
	}

	if err := s.authenticate(); err != nil {
		_ = s.tr.Close()
		s.state = StateIdle
		s.mu.Unlock()
		s.metricsHandshakeFailure()
		return err
	}

	if err := s.register(); err != nil {
		_ = s.tr.Close()
		s.state = StateIdle
		s.mu.Unlock()
		s.metricsHandshakeFailure()
		return err
	}

	if err := s.initialStatus(); err != nil {
		_ = s.tr.Close()
		s.state = StateIdle
		s.mu.Unlock()
		s.metricsHandshakeFailure()
		return err
	}

	s.connected = true
	s.state = StateConnected
	s.touchLastRecv()
	s.metricsHandshakeSuccess()
	s.mu.Unlock()

	s.handler.HandleEvent()
	return nil
}

// authenticate sends the authentication request and checks the version
// compatibility rule: floor(clientVersion*10) == floor(serverVersion*10).
// Best-effort error replies always carry the authentication label itself,
// never a variable from a different exchange.
func (s *Session) authenticate() error {
	req := protocol.AuthRequestPayload{
		Type:     protocol.TypeRequest,
		Version:  s.identity.Version,
		Rev:      s.identity.Rev,
		Username: s.creds.Username,
		Password: s.creds.Password,
	}
	if err := s.send(protocol.MessageAuthentication, req); err != nil {
		return err
	}

	env, err := s.recv(requestRecvTimeout)
	if err != nil {
		return err
	}
	if protocol.IsError(env) {
		return liberr.New(liberr.CodeAuthFailure, "authentication rejected: %s", env.Error)
	}
	if !strings.EqualFold(env.Message, protocol.MessageAuthentication) {
		s.sendError(protocol.MessageAuthentication, "authentication message expected")
		return liberr.New(liberr.CodeProtocol, "authentication message expected, got %q", env.Message)
	}

	var resp protocol.AuthResponsePayload
	if err := protocol.DecodePayload(env, &resp); err != nil || resp.Type != protocol.TypeResponse {
		s.sendError(protocol.MessageAuthentication, "response expected")
		return liberr.New(liberr.CodeProtocol, "authentication response malformed")
	}
	if !strings.EqualFold(resp.Result, protocol.ResultOK) {
		return liberr.New(liberr.CodeAuthFailure, "authentication result %q", resp.Result)
	}

	if int(s.identity.Version*10) != int(resp.Version*10) {
		s.sendError(protocol.MessageAuthentication, "version not compatible")
		return liberr.New(liberr.CodeVersionMismatch, "client version %.3f incompatible with server version %.3f", s.identity.Version, resp.Version)
	}

	return nil
}

// register sends the registration request for this node's identity.
func (s *Session) register() error {
	req := protocol.RegistrationRequestPayload{
		Type:       protocol.TypeRequest,
		Hostname:   s.identity.Hostname,
		NodeType:   s.identity.NodeType,
		Instance:   s.identity.Instance,
		Persistent: s.identity.Persistent,
		Manager:    protocol.RegistrationManager{Description: s.identity.Description},
	}
	if err := s.send(protocol.MessageRegistration, req); err != nil {
		return err
	}

	env, err := s.recv(requestRecvTimeout)
	if err != nil {
		return err
	}
	if protocol.IsError(env) {
		return liberr.New(liberr.CodeProtocol, "registration rejected: %s", env.Error)
	}
	if !strings.EqualFold(env.Message, protocol.MessageRegistration) {
		s.sendError(env.Message, "registration message expected")
		return liberr.New(liberr.CodeProtocol, "registration message expected, got %q", env.Message)
	}

	var resp protocol.ResponsePayload
	if err := protocol.DecodePayload(env, &resp); err != nil || resp.Type != protocol.TypeResponse {
		s.sendError(protocol.MessageRegistration, "response expected")
		return liberr.New(liberr.CodeProtocol, "registration response malformed")
	}
	if !strings.EqualFold(resp.Result, protocol.ResultOK) {
		return liberr.New(liberr.CodeProtocol, "registration result %q", resp.Result)
	}
	return nil
}

// initialStatus waits for the server's RTS, replies CTS, then expects and
// processes the one-shot initial status request that ends the handshake.
func (s *Session) initialStatus() error {
	env, err := s.recv(requestRecvTimeout)
	if err != nil {
		return err
	}
	if protocol.IsError(env) {
		return liberr.New(liberr.CodeProtocol, "error received before initial status: %s", env.Error)
	}

	var rts protocol.RTSPayload
	if err := protocol.DecodePayload(env, &rts); err != nil || rts.Type != protocol.TypeRTS {
		return liberr.New(liberr.CodeProtocol, "rts expected for initial status push")
	}

	if err := s.send(env.Message, protocol.RTSPayload{Type: protocol.TypeCTS, ID: rts.ID}); err != nil {
		return err
	}

	req, err := s.recv(requestRecvTimeout)
	if err != nil {
		return err
	}
	if protocol.IsError(req) {
		return liberr.New(liberr.CodeProtocol, "error received for initial status: %s", req.Error)
	}

	var reqType struct {
		Type protocol.PayloadType `json:"type"`
	}
	if err := protocol.DecodePayload(req, &reqType); err != nil || reqType.Type != protocol.TypeRequest {
		s.sendError(req.Message, "request expected")
		return liberr.New(liberr.CodeProtocol, "request expected for initial status")
	}
	if !strings.EqualFold(req.Message, protocol.MessageStatus) {
		s.sendError(req.Message, "initial status update expected")
		return liberr.New(liberr.CodeProtocol, "initial status update expected, got %q", req.Message)
	}

	return s.handleStatus(req)
}
