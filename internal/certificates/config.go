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

// Package certificates builds the *tls.Config the transport layer needs:
// a required server trust anchor and an optional client certificate pair,
// with a configurable minimum TLS version.
package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	libval "github.com/go-playground/validator/v10"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

// Config describes the trust material for one outbound TLS connection.
type Config struct {
	// ServerCAFile is the PEM file the server certificate must chain to.
	ServerCAFile string `mapstructure:"serverCAFile" json:"serverCAFile" yaml:"serverCAFile" validate:"required"`

	// ClientCertFile and ClientKeyFile, given together, enable mutual TLS.
	ClientCertFile string `mapstructure:"clientCertFile" json:"clientCertFile,omitempty" yaml:"clientCertFile,omitempty"`
	ClientKeyFile  string `mapstructure:"clientKeyFile" json:"clientKeyFile,omitempty" yaml:"clientKeyFile,omitempty"`

	// MinVersion floors the negotiated TLS version. Zero defaults to TLS 1.2.
	MinVersion uint16 `mapstructure:"minVersion" json:"minVersion,omitempty" yaml:"minVersion,omitempty"`
}

// Validate reports structural problems with the config before any file I/O
// is attempted, following the same go-playground/validator convention every
// Config type in this module uses.
func (c Config) Validate() error {
	if er := libval.New().Struct(c); er != nil {
		err := liberr.New(liberr.CodeProtocol, "certificate config invalid")
		for _, e := range er.(libval.ValidationErrors) {
			err = liberr.Wrap(liberr.CodeProtocol, err, "field '%s' failed constraint '%s'", e.StructNamespace(), e.ActualTag())
		}
		return err
	}
	if (c.ClientCertFile == "") != (c.ClientKeyFile == "") {
		return liberr.New(liberr.CodeProtocol, "client cert and client key must both be set or both be empty")
	}
	return nil
}

// TLS builds the *tls.Config to dial serverName with. It requires the
// server to present a certificate chaining to ServerCAFile and, when a
// client cert pair is configured, presents it for mutual TLS.
func (c Config) TLS(serverName string) (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	pool, err := loadCAPool(c.ServerCAFile)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: c.minVersion(),
	}

	if c.ClientCertFile != "" {
		pair, err := tls.LoadX509KeyPair(c.ClientCertFile, c.ClientKeyFile)
		if err != nil {
			return nil, liberr.Wrap(liberr.CodeTransport, err, "load client certificate pair")
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	return cfg, nil
}

func (c Config) minVersion() uint16 {
	if c.MinVersion == 0 {
		return tls.VersionTLS12
	}
	return c.MinVersion
}

func loadCAPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, liberr.Wrap(liberr.CodeTransport, err, "read trust anchor %q", path)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, liberr.New(liberr.CodeTransport, "%s", fmt.Sprintf("trust anchor %q contains no certificates", path))
	}
	return pool, nil
}
