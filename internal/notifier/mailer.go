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

package notifier

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"
	hermes "github.com/matcornic/hermes/v2"
	simplemail "github.com/xhit/go-simple-mail/v2"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/logger"
)

// Config is the SMTP mailer's configuration: the relay to send through,
// the product branding hermes stamps on every email, and the recipients
// for a communication alert.
type Config struct {
	Host       string   `yaml:"host" mapstructure:"host" validate:"required"`
	Port       int      `yaml:"port" mapstructure:"port" validate:"required"`
	Username   string   `yaml:"username" mapstructure:"username"`
	Password   string   `yaml:"password" mapstructure:"password"`
	From       string   `yaml:"from" mapstructure:"from" validate:"required,email"`
	Recipients []string `yaml:"recipients" mapstructure:"recipients" validate:"required,min=1,dive,email"`

	ProductName string `yaml:"productName" mapstructure:"productName" validate:"required"`
	ProductLink string `yaml:"productLink" mapstructure:"productLink"`
	Copyright   string `yaml:"copyright" mapstructure:"copyright"`

	// SendTimeout bounds a single SMTP connect+send. Defaults to 10s.
	SendTimeout time.Duration `yaml:"sendTimeout" mapstructure:"sendTimeout"`
}

// Validate checks Config against its struct tags.
func (c Config) Validate() error {
	if err := libval.New().Struct(c); err != nil {
		return liberr.Wrap(liberr.CodeProtocol, err, "mailer config invalid")
	}
	return nil
}

// Mailer is the SMTP-backed Notifier. Every send is best-effort: failures
// are logged and swallowed, since a dead mail relay must never block the
// watchdog's tick loop.
type Mailer struct {
	cfg Config
	log logger.Logger
	hms hermes.Hermes
}

// NewMailer validates cfg and builds a Mailer.
func NewMailer(cfg Config, log logger.Logger) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Mailer{
		cfg: cfg,
		log: log.WithComponent("notifier"),
		hms: hermes.Hermes{
			Product: hermes.Product{
				Name:      cfg.ProductName,
				Link:      cfg.ProductLink,
				Copyright: cfg.Copyright,
			},
		},
	}, nil
}

// SendCommunicationAlert emails every recipient that the manager has lost
// communication with the server, after retryCount consecutive failures.
func (m *Mailer) SendCommunicationAlert(retryCount int) {
	m.send("Communication lost", hermes.Body{
		Name: m.cfg.ProductName,
		Intros: []string{
			fmt.Sprintf("Communication with the server has failed %d consecutive time(s).", retryCount),
		},
	})
}

// SendCommunicationAlertClear emails every recipient that communication has
// recovered.
func (m *Mailer) SendCommunicationAlertClear() {
	m.send("Communication restored", hermes.Body{
		Name:   m.cfg.ProductName,
		Intros: []string{"Communication with the server has been restored."},
	})
}

func (m *Mailer) send(subject string, body hermes.Body) {
	html, err := m.hms.GenerateHTML(hermes.Email{Body: body})
	if err != nil {
		m.log.Error("render notification email", err, nil)
		return
	}
	plain, err := m.hms.GeneratePlainText(hermes.Email{Body: body})
	if err != nil {
		m.log.Error("render notification email", err, nil)
		return
	}

	msg := simplemail.NewMSG()
	msg.SetFrom(m.cfg.From).
		AddTo(m.cfg.Recipients...).
		SetSubject(subject).
		SetBody(simplemail.TextPlain, plain).
		AddAlternative(simplemail.TextHTML, html)
	if msg.Error != nil {
		m.log.Error("build notification email", msg.Error, nil)
		return
	}

	server := simplemail.NewSMTPClient()
	server.Host = m.cfg.Host
	server.Port = m.cfg.Port
	server.Username = m.cfg.Username
	server.Password = m.cfg.Password
	server.ConnectTimeout = m.cfg.SendTimeout
	server.SendTimeout = m.cfg.SendTimeout
	if m.cfg.Username != "" {
		server.Authentication = simplemail.AuthPlain
	}

	client, err := server.Connect()
	if err != nil {
		m.log.Error("connect to smtp relay", err, logger.Fields{"host": m.cfg.Host})
		return
	}

	if err := msg.Send(client); err != nil {
		m.log.Error("send notification email", err, logger.Fields{"subject": subject})
		return
	}

	m.log.Info("notification email sent", logger.Fields{"subject": subject, "recipients": len(m.cfg.Recipients)})
}
