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

// Package transport is the dumb TLS byte pipe the session drives: it makes
// no framing decisions, only connect/send/recv/close over one stream.
package transport

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"

	"github.com/dcmr/alertr-manager/internal/certificates"
	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

// BUFSIZE is the conventional single-read chunk size.
const BUFSIZE = 16384

// DialTimeout bounds the TCP+TLS handshake.
const DialTimeout = 10 * time.Second

// Transport is a blocking TLS byte stream with a per-Recv timeout. It holds
// no framing knowledge; the protocol codec and session own that.
type Transport struct {
	addr    string
	tlsCfg  certificates.Config
	metrics *Metrics

	conn net.Conn
}

// New builds a Transport that will dial addr ("host:port") using the given
// certificate configuration. metrics may be nil.
func New(addr string, tlsCfg certificates.Config, metrics *Metrics) *Transport {
	return &Transport{addr: addr, tlsCfg: tlsCfg, metrics: metrics}
}

// Connect establishes the TCP connection and performs the TLS handshake.
// Connect is not idempotent: calling it while already connected replaces
// the underlying connection without closing the old one; callers must
// Close() first.
func (t *Transport) Connect() error {
	t.metricsConnectAttempt()

	cfg, err := t.tlsCfg.TLS(hostOnly(t.addr))
	if err != nil {
		t.metricsConnectError()
		return liberr.Wrap(liberr.CodeTransport, err, "build tls config")
	}

	dialer := &net.Dialer{Timeout: DialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", t.addr, cfg)
	if err != nil {
		t.metricsConnectError()
		return liberr.Wrap(liberr.CodeTransport, err, "dial %s", t.addr)
	}

	t.conn = conn
	t.metricsSetConnected(true)
	return nil
}

// Send writes all of data to the connection.
func (t *Transport) Send(data []byte) error {
	if t.conn == nil {
		return liberr.New(liberr.CodeTransport, "send on unconnected transport")
	}
	if _, err := t.conn.Write(data); err != nil {
		t.metricsSendError()
		return liberr.Wrap(liberr.CodeTransport, err, "send")
	}
	return nil
}

// Recv blocks up to timeout for at least one byte and returns whatever was
// read, bounded by BUFSIZE. A timeout with no data returns a CodeTransportTimeout
// error; a clean peer close returns an empty, non-error slice; any other
// failure returns a CodeTransport error.
func (t *Transport) Recv(timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, liberr.New(liberr.CodeTransport, "recv on unconnected transport")
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, liberr.Wrap(liberr.CodeTransport, err, "set read deadline")
	}

	buf := make([]byte, BUFSIZE)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, liberr.Wrap(liberr.CodeTransportTimeout, err, "recv timeout")
		}
		if isClosedOrEOF(err) {
			return []byte{}, nil
		}
		t.metricsRecvError()
		return nil, liberr.Wrap(liberr.CodeTransport, err, "recv")
	}
	return buf[:n], nil
}

// Close is idempotent; closing an already-closed or never-connected
// Transport is a no-op.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.metricsSetConnected(false)
	if err != nil && !isClosedOrEOF(err) {
		return liberr.Wrap(liberr.CodeTransport, err, "close")
	}
	return nil
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func isClosedOrEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
