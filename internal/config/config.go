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

// Package config loads and validates the manager's YAML configuration file
// with spf13/viper, unmarshalling into a Config whose sub-sections validate
// themselves the same way every other Config type in this module does.
package config

import (
	"time"

	libval "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/dcmr/alertr-manager/internal/certificates"
	liberr "github.com/dcmr/alertr-manager/internal/errors"
	"github.com/dcmr/alertr-manager/internal/notifier"
)

// Identity is this node's registration identity, read from config.
type Identity struct {
	Version     float64 `mapstructure:"version" yaml:"version" validate:"required"`
	Rev         int     `mapstructure:"rev" yaml:"rev"`
	Hostname    string  `mapstructure:"hostname" yaml:"hostname" validate:"required"`
	NodeType    string  `mapstructure:"nodeType" yaml:"nodeType" validate:"required"`
	Instance    string  `mapstructure:"instance" yaml:"instance"`
	Description string  `mapstructure:"description" yaml:"description"`
	Persistent  int     `mapstructure:"persistent" yaml:"persistent"`
}

// Credentials authenticates this client to the server.
type Credentials struct {
	Username string `mapstructure:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" validate:"required"`
}

// Server is the alertR server this client dials.
type Server struct {
	Address string              `mapstructure:"address" yaml:"address" validate:"required,hostname_port"`
	TLS     certificates.Config `mapstructure:"tls" yaml:"tls"`
}

// Watchdog tunes the reconnect/keepalive loop.
type Watchdog struct {
	PingInterval time.Duration `mapstructure:"pingInterval" yaml:"pingInterval"`
}

// Logging tunes the structured logger.
type Logging struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Metrics exposes the Prometheus registry over HTTP. Listen is empty by
// default, which leaves the HTTP endpoint unserved; the collectors are
// still registered and updated.
type Metrics struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Config is the manager's full configuration tree.
type Config struct {
	Server      Server          `mapstructure:"server" yaml:"server"`
	Identity    Identity        `mapstructure:"identity" yaml:"identity"`
	Credentials Credentials     `mapstructure:"credentials" yaml:"credentials"`
	Watchdog    Watchdog        `mapstructure:"watchdog" yaml:"watchdog"`
	Mailer      notifier.Config `mapstructure:"mailer" yaml:"mailer"`
	Logging     Logging         `mapstructure:"logging" yaml:"logging"`
	Metrics     Metrics         `mapstructure:"metrics" yaml:"metrics"`
}

const defaultPingInterval = 30 * time.Second

// Load reads and unmarshals the YAML file at path, filling the Watchdog's
// PingInterval default if unset, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "read config %q", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, liberr.Wrap(liberr.CodeProtocol, err, "unmarshal config %q", path)
	}

	if cfg.Watchdog.PingInterval == 0 {
		cfg.Watchdog.PingInterval = defaultPingInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks identity, credentials, server, TLS and (when a mailer host
// is set) mailer, in that order, and returns the first failure it finds.
func (c Config) Validate() error {
	if er := libval.New().Struct(c.Identity); er != nil {
		return liberr.Wrap(liberr.CodeProtocol, er, "identity config invalid")
	}
	if er := libval.New().Struct(c.Credentials); er != nil {
		return liberr.Wrap(liberr.CodeProtocol, er, "credentials config invalid")
	}
	if er := libval.New().Struct(c.Server); er != nil {
		return liberr.Wrap(liberr.CodeProtocol, er, "server config invalid")
	}
	if err := c.Server.TLS.Validate(); err != nil {
		return err
	}
	if c.Mailer.Host != "" {
		if err := c.Mailer.Validate(); err != nil {
			return err
		}
	}
	return nil
}
