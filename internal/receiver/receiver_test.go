package receiver_test

import (
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcmr/alertr-manager/internal/receiver"
)

func TestReceiver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "receiver suite")
}

type fakeSession struct {
	calls int64
}

func (f *fakeSession) HandleCommunication() {
	atomic.AddInt64(&f.calls, 1)
}

func (f *fakeSession) Calls() int64 {
	return atomic.LoadInt64(&f.calls)
}

var _ = Describe("Receiver", func() {
	It("calls HandleCommunication repeatedly at its pace", func() {
		sess := &fakeSession{}
		r := receiver.New(sess, receiver.WithPace(5*time.Millisecond))

		done := make(chan struct{})
		go func() {
			r.Run()
			close(done)
		}()

		Eventually(sess.Calls, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 3))
		r.Stop()
		<-done
	})

	It("stops promptly even mid-pace", func() {
		sess := &fakeSession{}
		r := receiver.New(sess, receiver.WithPace(time.Minute))

		done := make(chan struct{})
		go func() {
			r.Run()
			close(done)
		}()

		Eventually(sess.Calls, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 1))

		stopped := make(chan struct{})
		go func() {
			r.Stop()
			close(stopped)
		}()
		Eventually(stopped, time.Second).Should(BeClosed())
		<-done
	})
})
