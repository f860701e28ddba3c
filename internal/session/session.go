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

// Package session owns one Transport and drives the RTS/CTS protocol
// against it: the handshake, the server-initiated receive/dispatch loop,
// and the client-initiated operations. A single exclusivity token (mu)
// serializes all transport I/O and the connected/lastRecv fields.
package session

import (
	"sync"
	"time"

	"github.com/dcmr/alertr-manager/internal/eventhandler"
	"github.com/dcmr/alertr-manager/internal/logger"
)

// State is a Session's position in the lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateHandshaking
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Identity is this node's registration identity.
type Identity struct {
	Version     float64
	Rev         int
	Hostname    string
	NodeType    string
	Instance    string
	Description string
	Persistent  int
}

// Credentials authenticates this client to the server.
type Credentials struct {
	Username string
	Password string
}

// transportConn is the subset of *transport.Transport the session drives.
// Kept narrow and unexported so tests can substitute an in-memory stream.
type transportConn interface {
	Connect() error
	Send([]byte) error
	Recv(timeout time.Duration) ([]byte, error)
	Close() error
}

const (
	requestRecvTimeout = 3 * time.Second
	idleRecvTimeout    = 500 * time.Millisecond
	idleReleaseWait    = 500 * time.Millisecond
	rtsRetryBackoffMax = time.Second
	txInitBackoff      = 500 * time.Millisecond
)

// Session drives the protocol for one Transport. Build with New; every
// exported method takes the exclusivity token for its own logical
// transaction and releases it before returning.
type Session struct {
	tr       transportConn
	identity Identity
	creds    Credentials
	handler  eventhandler.Handler
	log      logger.Logger
	metrics  *Metrics

	now  func() int64
	txid func() uint32

	mu           sync.Mutex
	state        State
	connected    bool
	lastRecv     time.Time
	txInitiating bool
}

// Opt customizes a Session at construction.
type Opt func(*Session)

// WithLogger attaches a structured logger. Defaults to a discarding logger.
func WithLogger(l logger.Logger) Opt { return func(s *Session) { s.log = l.WithComponent("session") } }

// WithMetrics attaches a Prometheus instrumentation hook. A nil *Metrics is
// always safe; omit this option to run uninstrumented.
func WithMetrics(m *Metrics) Opt { return func(s *Session) { s.metrics = m } }

// WithClock overrides the wall-clock source used to stamp clientTime. Tests
// use this for deterministic envelopes.
func WithClock(now func() int64) Opt { return func(s *Session) { s.now = now } }

// WithTxIDSource overrides the transaction id generator. Tests use this to
// force deterministic or colliding ids.
func WithTxIDSource(f func() uint32) Opt { return func(s *Session) { s.txid = f } }

// New builds an idle Session that will drive tr using identity/creds,
// delivering decoded events to handler.
func New(tr transportConn, identity Identity, creds Credentials, handler eventhandler.Handler, opts ...Opt) *Session {
	s := &Session{
		tr:       tr,
		identity: identity,
		creds:    creds,
		handler:  handler,
		log:      logger.Nop(),
		now:      func() int64 { return time.Now().Unix() },
		txid:     randomTxID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the session holds a live, handshaken connection.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastRecv returns the wall-clock time of the last fully received message.
func (s *Session) LastRecv() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRecv
}

func (s *Session) touchLastRecv() {
	s.lastRecv = time.Now()
}

// disconnect tears down the transport and marks the session idle. Caller
// must hold s.mu; disconnect does not release it. A session already idle
// and disconnected is left untouched, making repeated calls a no-op.
func (s *Session) disconnect() {
	if s.state == StateIdle && !s.connected {
		return
	}
	s.connected = false
	s.state = StateClosing
	_ = s.tr.Close()
	s.state = StateIdle
	s.metricsDisconnect()
	s.handler.HandleEvent()
}
