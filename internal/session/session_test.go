package session_test

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/eventhandler"
	"github.com/dcmr/alertr-manager/internal/logger"
	"github.com/dcmr/alertr-manager/internal/model"
	"github.com/dcmr/alertr-manager/internal/protocol"
	"github.com/dcmr/alertr-manager/internal/session"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "session suite")
}

// pipeTransport adapts a net.Conn (one end of a net.Pipe) to the narrow
// transport interface Session drives, without pulling in real TLS.
type pipeTransport struct {
	conn net.Conn
}

func (p *pipeTransport) Connect() error { return nil }

func (p *pipeTransport) Send(data []byte) error {
	_, err := p.conn.Write(data)
	return err
}

func (p *pipeTransport) Recv(timeout time.Duration) ([]byte, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, liberr.Wrap(liberr.CodeTransport, err, "set read deadline")
	}
	buf := make([]byte, protocol.BUFSIZE)
	n, err := p.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, liberr.Wrap(liberr.CodeTransportTimeout, err, "recv timeout")
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return []byte{}, nil
		}
		return nil, liberr.Wrap(liberr.CodeTransport, err, "recv")
	}
	return buf[:n], nil
}

func (p *pipeTransport) Close() error {
	return p.conn.Close()
}

// fakeServer plays the server side of the handshake/receive protocol over
// the other end of the same net.Pipe, using the real protocol codec.
type fakeServer struct {
	conn net.Conn
}

func (f *fakeServer) recv() (*protocol.Envelope, error) {
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, protocol.BUFSIZE)
	n, err := f.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return protocol.Decode(buf[:n])
}

func (f *fakeServer) expect(label string) *protocol.Envelope {
	env, err := f.recv()
	ExpectWithOffset(1, err).ToNot(HaveOccurred())
	ExpectWithOffset(1, env.Message).To(Equal(label))
	return env
}

func (f *fakeServer) send(message string, payload any) {
	raw, err := protocol.Encode(func() int64 { return 0 }, message, payload)
	ExpectWithOffset(1, err).ToNot(HaveOccurred())
	_, err = f.conn.Write(raw)
	ExpectWithOffset(1, err).ToNot(HaveOccurred())
}

// runHandshakeUntilStatus plays the server side of the handshake up to and
// including sending the initial status request; the client's answer to it
// is left for the caller to consume.
func (f *fakeServer) runHandshakeUntilStatus(serverVersion float64) {
	f.expect(protocol.MessageAuthentication)
	f.send(protocol.MessageAuthentication, protocol.AuthResponsePayload{
		Type: protocol.TypeResponse, Version: serverVersion, Rev: 1, Result: protocol.ResultOK,
	})

	f.expect(protocol.MessageRegistration)
	f.send(protocol.MessageRegistration, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK})

	const txid = uint32(42)
	f.send(protocol.MessageStatus, protocol.RTSPayload{Type: protocol.TypeRTS, ID: txid})

	cts := f.expect(protocol.MessageStatus)
	var ctsPayload protocol.RTSPayload
	ExpectWithOffset(1, protocol.DecodePayload(cts, &ctsPayload)).To(Succeed())
	ExpectWithOffset(1, ctsPayload.Type).To(Equal(protocol.TypeCTS))
	ExpectWithOffset(1, ctsPayload.ID).To(Equal(txid))

	f.send(protocol.MessageStatus, emptyStatus())
}

// runHandshake plays the server side of a fully successful handshake
// reporting serverVersion back to the client.
func (f *fakeServer) runHandshake(serverVersion float64) {
	f.runHandshakeUntilStatus(serverVersion)

	resp := f.expect(protocol.MessageStatus)
	var rp protocol.ResponsePayload
	ExpectWithOffset(1, protocol.DecodePayload(resp, &rp)).To(Succeed())
	ExpectWithOffset(1, rp.Result).To(Equal(protocol.ResultOK))
}

// respondToClientInitiated plays the server side of one client-initiated
// RTS/CTS/request/response cycle for the given label.
func (f *fakeServer) respondToClientInitiated(label string) {
	env := f.expect(label)
	var rts protocol.RTSPayload
	ExpectWithOffset(1, protocol.DecodePayload(env, &rts)).To(Succeed())
	ExpectWithOffset(1, rts.Type).To(Equal(protocol.TypeRTS))

	f.send(label, protocol.RTSPayload{Type: protocol.TypeCTS, ID: rts.ID})

	f.expect(label)
	f.send(label, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK})
}

type statusWire struct {
	Type        protocol.PayloadType `json:"type"`
	Options     []model.Option       `json:"options"`
	Nodes       []model.Node         `json:"nodes"`
	Sensors     []model.Sensor       `json:"sensors"`
	Managers    []model.Manager      `json:"managers"`
	Alerts      []model.Alert        `json:"alerts"`
	AlertLevels []model.AlertLevel   `json:"alertLevels"`
}

func emptyStatus() statusWire {
	return statusWire{
		Type:    protocol.TypeRequest,
		Options: []model.Option{}, Nodes: []model.Node{}, Sensors: []model.Sensor{},
		Managers: []model.Manager{}, Alerts: []model.Alert{}, AlertLevels: []model.AlertLevel{},
	}
}

func newPair() (*pipeTransport, *fakeServer) {
	a, b := net.Pipe()
	return &pipeTransport{conn: a}, &fakeServer{conn: b}
}

var _ = Describe("Session", func() {
	var identity session.Identity
	var creds session.Credentials

	BeforeEach(func() {
		identity = session.Identity{Version: 1.3, Rev: 2, Hostname: "node-1", NodeType: "manager", Instance: "default"}
		creds = session.Credentials{Username: "user", Password: "pass"}
	})

	It("completes the handshake and delivers the initial snapshot", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			srv.runHandshake(1.3)
		}()

		Expect(sess.Initialize()).To(Succeed())
		<-done

		Expect(sess.Connected()).To(BeTrue())
		Expect(sess.State()).To(Equal(session.StateConnected))
		Expect(handler.Snapshot()).ToNot(BeNil())
		Expect(handler.Events()).To(Equal(1))
	})

	It("fails on a version mismatch and leaves the session idle", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			srv.expect(protocol.MessageAuthentication)
			srv.send(protocol.MessageAuthentication, protocol.AuthResponsePayload{
				Type: protocol.TypeResponse, Version: 9.9, Rev: 1, Result: protocol.ResultOK,
			})

			errEnv, err := srv.recv()
			Expect(err).ToNot(HaveOccurred())
			Expect(protocol.IsError(errEnv)).To(BeTrue())
			Expect(errEnv.Error).To(Equal("version not compatible"))
		}()

		err := sess.Initialize()
		<-done

		Expect(err).To(HaveOccurred())
		Expect(liberr.HasCode(err, liberr.CodeVersionMismatch)).To(BeTrue())
		Expect(sess.Connected()).To(BeFalse())
		Expect(sess.State()).To(Equal(session.StateIdle))
	})

	It("fails when the server rejects authentication", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			srv.expect(protocol.MessageAuthentication)
			srv.send(protocol.MessageAuthentication, protocol.AuthResponsePayload{
				Type: protocol.TypeResponse, Result: "fail",
			})
		}()

		err := sess.Initialize()
		<-done

		Expect(err).To(HaveOccurred())
		Expect(liberr.HasCode(err, liberr.CodeAuthFailure)).To(BeTrue())
		Expect(sess.Connected()).To(BeFalse())
	})

	It("dispatches a sensor alert and delivers it to the event handler", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		handshakeDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(handshakeDone)
			srv.runHandshake(1.3)
		}()
		Expect(sess.Initialize()).To(Succeed())
		<-handshakeDone

		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			sess.HandleCommunication()
		}()

		const txid = uint32(7)
		srv.send(protocol.MessageSensorAlert, protocol.RTSPayload{Type: protocol.TypeRTS, ID: txid})
		cts := srv.expect(protocol.MessageSensorAlert)
		var ctsPayload protocol.RTSPayload
		Expect(protocol.DecodePayload(cts, &ctsPayload)).To(Succeed())
		Expect(ctsPayload.ID).To(Equal(txid))

		srv.send(protocol.MessageSensorAlert, struct {
			Type           protocol.PayloadType `json:"type"`
			RulesActivated bool                 `json:"rulesActivated"`
			SensorID       int                  `json:"sensorId"`
			State          int                  `json:"state"`
			AlertLevels    []int                `json:"alertLevels"`
			Description    string               `json:"description"`
			DataTransfer   bool                 `json:"dataTransfer"`
			Data           map[string]any       `json:"data"`
			ChangeState    bool                 `json:"changeState"`
		}{
			Type: protocol.TypeRequest, SensorID: 3, State: 1, AlertLevels: []int{1, 2},
			Description: "door open", DataTransfer: false, ChangeState: true,
		})

		resp := srv.expect(protocol.MessageSensorAlert)
		var rp protocol.ResponsePayload
		Expect(protocol.DecodePayload(resp, &rp)).To(Succeed())
		Expect(rp.Result).To(Equal(protocol.ResultOK))

		Eventually(func() int { return len(handler.SensorAlerts()) }, time.Second).Should(Equal(1))
		alert := handler.SensorAlerts()[0]
		Expect(alert.SensorID).To(Equal(3))
		Expect(alert.Data).To(BeEmpty())

		Expect(srv.conn.Close()).To(Succeed())
		Eventually(loopDone, time.Second).Should(BeClosed())
		Expect(sess.Connected()).To(BeFalse())
	})

	It("completes a keepalive round trip", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		handshakeDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(handshakeDone)
			srv.runHandshake(1.3)
		}()
		Expect(sess.Initialize()).To(Succeed())
		<-handshakeDone

		serverDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(serverDone)
			srv.respondToClientInitiated(protocol.MessagePing)
		}()

		before := sess.LastRecv()
		Expect(sess.SendKeepalive()).To(Succeed())
		Eventually(serverDone, time.Second).Should(BeClosed())
		Expect(sess.Connected()).To(BeTrue())
		Expect(sess.LastRecv()).To(BeTemporally(">", before))
	})

	It("retries with a fresh txid after a CTS id mismatch", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		ids := []uint32{7, 8}
		idx := 0
		sess := session.New(tr, identity, creds, handler,
			session.WithTxIDSource(func() uint32 {
				id := ids[idx%len(ids)]
				idx++
				return id
			}),
		)

		handshakeDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(handshakeDone)
			srv.runHandshake(1.3)
		}()
		Expect(sess.Initialize()).To(Succeed())
		<-handshakeDone

		serverDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(serverDone)

			env := srv.expect(protocol.MessagePing)
			var rts protocol.RTSPayload
			Expect(protocol.DecodePayload(env, &rts)).To(Succeed())
			Expect(rts.ID).To(Equal(uint32(7)))

			// Answer with the wrong id; the client must back off and
			// restart the arbitration with a fresh txid.
			srv.send(protocol.MessagePing, protocol.RTSPayload{Type: protocol.TypeCTS, ID: rts.ID + 1})

			env = srv.expect(protocol.MessagePing)
			Expect(protocol.DecodePayload(env, &rts)).To(Succeed())
			Expect(rts.Type).To(Equal(protocol.TypeRTS))
			Expect(rts.ID).To(Equal(uint32(8)))
			srv.send(protocol.MessagePing, protocol.RTSPayload{Type: protocol.TypeCTS, ID: rts.ID})

			srv.expect(protocol.MessagePing)
			srv.send(protocol.MessagePing, protocol.ResponsePayload{Type: protocol.TypeResponse, Result: protocol.ResultOK})
		}()

		Expect(sess.SendKeepalive()).To(Succeed())
		Eventually(serverDone, 3*time.Second).Should(BeClosed())
	})

	It("aborts the transaction when the CTS wait times out", func() {
		tr, srv := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		txidCalls := 0
		sess := session.New(tr, identity, creds, handler,
			session.WithTxIDSource(func() uint32 {
				txidCalls++
				return 99
			}),
		)

		handshakeDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(handshakeDone)
			srv.runHandshake(1.3)
		}()
		Expect(sess.Initialize()).To(Succeed())
		<-handshakeDone

		serverDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(serverDone)
			// Read the RTS and never answer: the client's CTS wait must
			// time out and abort, not re-arbitrate with a fresh txid.
			srv.expect(protocol.MessagePing)
		}()

		err := sess.SendKeepalive()
		Expect(err).To(HaveOccurred())
		Expect(liberr.HasCode(err, liberr.CodeTransportTimeout)).To(BeTrue())
		Expect(txidCalls).To(Equal(1))
		Eventually(serverDone, time.Second).Should(BeClosed())
	})

	It("terminates the session when a handler rejects a status push", func() {
		tr, srv := newPair()
		handler := &failingHandler{}
		sess := session.New(tr, identity, creds, handler)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			srv.runHandshakeUntilStatus(1.3)

			// The handler rejects the snapshot, so the client answers the
			// status request with an error reply instead of response ok.
			errEnv, err := srv.recv()
			Expect(err).ToNot(HaveOccurred())
			Expect(protocol.IsError(errEnv)).To(BeTrue())
			Expect(errEnv.Error).To(Equal("handling received data failed"))
		}()

		err := sess.Initialize()
		<-done

		Expect(err).To(HaveOccurred())
		Expect(liberr.HasCode(err, liberr.CodeHandlerFailure)).To(BeTrue())
		Expect(sess.Connected()).To(BeFalse())
	})

	It("treats repeated Close calls on an unconnected session as a no-op", func() {
		tr, _ := newPair()
		handler := eventhandler.NewMemory(logger.Nop())
		sess := session.New(tr, identity, creds, handler)

		sess.Close()
		sess.Close()
		Expect(handler.Events()).To(Equal(0))
	})
})

// failingHandler rejects every delivery, exercising the session-terminating
// handler-failure paths.
type failingHandler struct{}

func (failingHandler) ReceivedStatusUpdate(*model.Snapshot) bool          { return false }
func (failingHandler) ReceivedSensorAlert(int64, *model.SensorAlert) bool { return false }
func (failingHandler) ReceivedStateChange(int64, *model.StateChange) bool { return false }
func (failingHandler) HandleEvent()                                      {}
