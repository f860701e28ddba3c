/*
 *  MIT License
 *
 *  Copyright (c) 2020 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

package certificates_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcmr/alertr-manager/internal/certificates"
)

func TestCertificates(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "certificates suite")
}

func genSelfSignedPEM() []byte {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-ca"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "certs")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("rejects a missing trust anchor path", func() {
		cfg := certificates.Config{}
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects a client cert without a matching key", func() {
		caPath := filepath.Join(dir, "ca.pem")
		Expect(os.WriteFile(caPath, genSelfSignedPEM(), 0o600)).To(Succeed())

		cfg := certificates.Config{ServerCAFile: caPath, ClientCertFile: "cert.pem"}
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("builds a usable tls.Config from a valid CA file", func() {
		caPath := filepath.Join(dir, "ca.pem")
		Expect(os.WriteFile(caPath, genSelfSignedPEM(), 0o600)).To(Succeed())

		cfg := certificates.Config{ServerCAFile: caPath}
		tlsCfg, err := cfg.TLS("example.test")
		Expect(err).ToNot(HaveOccurred())
		Expect(tlsCfg.ServerName).To(Equal("example.test"))
		Expect(tlsCfg.MinVersion).To(Equal(uint16(tls.VersionTLS12)))
		Expect(tlsCfg.RootCAs).ToNot(BeNil())
	})

	It("errors when the trust anchor file does not exist", func() {
		cfg := certificates.Config{ServerCAFile: filepath.Join(dir, "missing.pem")}
		_, err := cfg.TLS("example.test")
		Expect(err).To(HaveOccurred())
	})

	It("honors an explicit minimum TLS version", func() {
		caPath := filepath.Join(dir, "ca.pem")
		Expect(os.WriteFile(caPath, genSelfSignedPEM(), 0o600)).To(Succeed())

		cfg := certificates.Config{ServerCAFile: caPath, MinVersion: tls.VersionTLS13}
		tlsCfg, err := cfg.TLS("example.test")
		Expect(err).ToNot(HaveOccurred())
		Expect(tlsCfg.MinVersion).To(Equal(uint16(tls.VersionTLS13)))
	})
})
