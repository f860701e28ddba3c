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
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"strings"
	"time"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/logger"
	"github.com/dcmr/alertr-manager/internal/protocol"
)

var errPeerClosed = liberr.New(liberr.CodeTransport, "peer closed the connection")

func isPeerClosed(err error) bool {
	return err == errPeerClosed
}

func randomTxID() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mrand.Uint32()
	}
	return binary.BigEndian.Uint32(b[:])
}

func randomBackoff(max time.Duration) time.Duration {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return max / 2
	}
	return time.Duration(n.Int64())
}

// send encodes and writes a request/response/rts/cts payload under message.
// Caller must hold s.mu.
func (s *Session) send(message string, payload any) error {
	raw, err := protocol.Encode(s.now, message, payload)
	if err != nil {
		return err
	}
	return s.tr.Send(raw)
}

// sendError writes a best-effort error reply under message, the originating
// incoming envelope's own label, never a variable left over from a prior
// message. Failure to write it is not itself an error: the caller is
// already terminating the session.
func (s *Session) sendError(message, reason string) {
	raw, err := protocol.EncodeError(s.now, message, reason)
	if err != nil {
		return
	}
	_ = s.tr.Send(raw)
}

// recv reads and decodes the next envelope. A clean peer close (empty read)
// surfaces as errPeerClosed rather than a nil envelope with a nil error, so
// every caller has one error channel to check. Caller must hold s.mu.
func (s *Session) recv(timeout time.Duration) (*protocol.Envelope, error) {
	raw, err := s.tr.Recv(timeout)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errPeerClosed
	}
	return protocol.Decode(raw)
}

// acquireForTransaction takes s.mu for a client-initiated RTS/CTS exchange.
// If another local initiator already holds the transactionInitiation flag,
// it releases mu, backs off, and retries: a reentrancy guard layered on top
// of mu itself.
func (s *Session) acquireForTransaction() {
	for {
		s.mu.Lock()
		if s.txInitiating {
			s.mu.Unlock()
			time.Sleep(txInitBackoff)
			continue
		}
		s.txInitiating = true
		return
	}
}

// retryInitiation releases the exclusivity token, waits a random 0-1s
// backoff, and reacquires before the next RTS attempt.
func (s *Session) retryInitiation() {
	s.txInitiating = false
	s.mu.Unlock()
	time.Sleep(randomBackoff(rtsRetryBackoffMax))
	s.acquireForTransaction()
}

// initiateTransaction runs the RTS/CTS arbitration for a client-initiated
// exchange labeled message. Caller must hold s.mu via acquireForTransaction
// before calling. On success s.mu remains held so the caller can send the
// follow-up request under the same exclusivity window. Any failure to
// receive the CTS reply, including a timeout, aborts the transaction with
// s.mu released; only a successfully received but mismatched reply (wrong
// id, type, or label) or an error-labeled reply retries with backoff.
func (s *Session) initiateTransaction(message string) error {
	for {
		id := s.txid()
		if err := s.send(message, protocol.RTSPayload{Type: protocol.TypeRTS, ID: id}); err != nil {
			s.txInitiating = false
			s.mu.Unlock()
			return err
		}

		env, err := s.recv(requestRecvTimeout)
		if err != nil {
			if isPeerClosed(err) || liberr.HasCode(err, liberr.CodeTransport) ||
				liberr.HasCode(err, liberr.CodeTransportTimeout) {
				s.txInitiating = false
				s.mu.Unlock()
				return err
			}
			s.log.Warning("rts/cts exchange failed, retrying", logger.Fields{"message": message, "error": err.Error()})
			s.retryInitiation()
			continue
		}
		if protocol.IsError(env) {
			s.log.Warning("rts rejected by peer, retrying", logger.Fields{"message": message, "error": env.Error})
			s.retryInitiation()
			continue
		}

		var cts protocol.RTSPayload
		if err := protocol.DecodePayload(env, &cts); err != nil ||
			cts.Type != protocol.TypeCTS || cts.ID != id || !strings.EqualFold(env.Message, message) {
			s.retryInitiation()
			continue
		}

		s.txInitiating = false
		return nil
	}
}
