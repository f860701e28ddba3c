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

package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcmr/alertr-manager/internal/config"
	"github.com/dcmr/alertr-manager/internal/eventhandler"
	"github.com/dcmr/alertr-manager/internal/logger"
	"github.com/dcmr/alertr-manager/internal/notifier"
	"github.com/dcmr/alertr-manager/internal/receiver"
	"github.com/dcmr/alertr-manager/internal/session"
	"github.com/dcmr/alertr-manager/internal/transport"
	"github.com/dcmr/alertr-manager/internal/watchdog"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the alertR server and run the manager loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return run(path)
		},
	}
	configFlag(cmd)
	return cmd
}

func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	lvl := logrus.InfoLevel
	if cfg.Logging.Level != "" {
		if parsed, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
			lvl = parsed
		}
	}
	log := logger.New(os.Stderr, lvl)

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen, reg, log)
	}

	notif := notifier.Noop()
	if cfg.Mailer.Host != "" {
		m, err := notifier.NewMailer(cfg.Mailer, log)
		if err != nil {
			return err
		}
		notif = m
	}

	handler := eventhandler.NewMemory(log)

	tr := transport.New(cfg.Server.Address, cfg.Server.TLS, transport.NewMetrics(reg))

	identity := session.Identity{
		Version:     cfg.Identity.Version,
		Rev:         cfg.Identity.Rev,
		Hostname:    cfg.Identity.Hostname,
		NodeType:    cfg.Identity.NodeType,
		Instance:    cfg.Identity.Instance,
		Description: cfg.Identity.Description,
		Persistent:  cfg.Identity.Persistent,
	}
	creds := session.Credentials{
		Username: cfg.Credentials.Username,
		Password: cfg.Credentials.Password,
	}

	sess := session.New(tr, identity, creds, handler,
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(reg)),
	)

	if err := sess.Initialize(); err != nil {
		return fmt.Errorf("initial handshake: %w", err)
	}

	wd := watchdog.New(sess, notif, cfg.Watchdog.PingInterval,
		watchdog.WithLogger(log),
		watchdog.WithMetrics(watchdog.NewMetrics(reg)),
	)
	rcv := receiver.New(sess)

	go wd.Run()
	go rcv.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	rcv.Stop()
	wd.Stop()
	sess.Close()
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithComponent("metrics").Error("metrics server stopped", err, nil)
	}
}
