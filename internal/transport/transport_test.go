package transport_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcmr/alertr-manager/internal/certificates"
	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/transport"
)

func TestTransport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "transport suite")
}

// genCertKeyPair returns a self-signed PEM cert + key usable both as a CA
// and as the server's own leaf certificate (valid for "127.0.0.1").
func genCertKeyPair() (certPEM, keyPEM []byte) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	keyDER, err := x509.MarshalECPrivateKey(priv)
	Expect(err).ToNot(HaveOccurred())

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return
}

var _ = Describe("Transport", func() {
	var (
		dir       string
		caPath    string
		certPath  string
		keyPath   string
		listener  net.Listener
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "transport")
		Expect(err).ToNot(HaveOccurred())

		certPEM, keyPEM := genCertKeyPair()
		caPath = filepath.Join(dir, "ca.pem")
		certPath = filepath.Join(dir, "server.pem")
		keyPath = filepath.Join(dir, "server.key")
		Expect(os.WriteFile(caPath, certPEM, 0o600)).To(Succeed())
		Expect(os.WriteFile(certPath, certPEM, 0o600)).To(Succeed())
		Expect(os.WriteFile(keyPath, keyPEM, 0o600)).To(Succeed())

		pair, err := tls.LoadX509KeyPair(certPath, keyPath)
		Expect(err).ToNot(HaveOccurred())

		listener, err = tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
			Certificates: []tls.Certificate{pair},
		})
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = listener.Close()
		_ = os.RemoveAll(dir)
	})

	It("connects, exchanges bytes, and closes idempotently", func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 64)
			n, _ := conn.Read(buf)
			_, _ = conn.Write(buf[:n])
		}()

		tr := transport.New(listener.Addr().String(), certificates.Config{ServerCAFile: caPath}, nil)
		Expect(tr.Connect()).To(Succeed())

		Expect(tr.Send([]byte("hello"))).To(Succeed())
		data, err := tr.Recv(2 * time.Second)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("hello"))

		Expect(tr.Close()).To(Succeed())
		Expect(tr.Close()).To(Succeed())
		<-done
	})

	It("reports a timeout distinctly from a hard error", func() {
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.(*tls.Conn).Handshake()
			time.Sleep(300 * time.Millisecond)
		}()

		tr := transport.New(listener.Addr().String(), certificates.Config{ServerCAFile: caPath}, nil)
		Expect(tr.Connect()).To(Succeed())
		defer tr.Close()

		_, err := tr.Recv(50 * time.Millisecond)
		Expect(err).To(HaveOccurred())
		Expect(liberr.HasCode(err, liberr.CodeTransportTimeout)).To(BeTrue())
	})

	It("returns an empty read on clean peer close", func() {
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.(*tls.Conn).Handshake()
			conn.Close()
		}()

		tr := transport.New(listener.Addr().String(), certificates.Config{ServerCAFile: caPath}, nil)
		Expect(tr.Connect()).To(Succeed())
		defer tr.Close()

		data, err := tr.Recv(2 * time.Second)
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(BeEmpty())
	})

	It("fails to connect when the server certificate isn't trusted", func() {
		otherCert, _ := genCertKeyPair()
		otherCAPath := filepath.Join(dir, "other-ca.pem")
		Expect(os.WriteFile(otherCAPath, otherCert, 0o600)).To(Succeed())

		go func() {
			conn, err := listener.Accept()
			if err == nil {
				conn.Close()
			}
		}()

		tr := transport.New(listener.Addr().String(), certificates.Config{ServerCAFile: otherCAPath}, nil)
		Expect(tr.Connect()).To(HaveOccurred())
	})
})
