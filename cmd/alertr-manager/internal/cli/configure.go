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
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".alertr-manager.yaml"

// configTemplate mirrors internal/config.Config, but every duration is a
// string so the generated file reads "30s" rather than a nanosecond count.
// It leaves out the optional mailer section and tls.minVersion.
type configTemplate struct {
	Server struct {
		Address string `yaml:"address"`
		TLS     struct {
			ServerCAFile   string `yaml:"serverCAFile"`
			ClientCertFile string `yaml:"clientCertFile,omitempty"`
			ClientKeyFile  string `yaml:"clientKeyFile,omitempty"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Identity struct {
		Version     float64 `yaml:"version"`
		Rev         int     `yaml:"rev"`
		Hostname    string  `yaml:"hostname"`
		NodeType    string  `yaml:"nodeType"`
		Instance    string  `yaml:"instance"`
		Description string  `yaml:"description"`
		Persistent  int     `yaml:"persistent"`
	} `yaml:"identity"`
	Credentials struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`
	Watchdog struct {
		PingInterval string `yaml:"pingInterval"`
	} `yaml:"watchdog"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
}

// defaultTemplate fills a template with placeholder values that pass
// validation, so `configure` followed by `validate` succeeds out of the box.
func defaultTemplate() configTemplate {
	var t configTemplate
	t.Server.Address = "alertr.example.com:44556"
	t.Server.TLS.ServerCAFile = "/etc/alertr-manager/server-ca.pem"
	t.Identity.Version = 1.0
	t.Identity.Rev = 0
	t.Identity.Hostname = hostnameOr("manager-1")
	t.Identity.NodeType = "manager"
	t.Identity.Instance = "default"
	t.Identity.Description = "alertR manager client"
	t.Credentials.Username = "manager"
	t.Credentials.Password = "changeme"
	t.Watchdog.PingInterval = "30s"
	t.Logging.Level = "info"
	return t
}

func hostnameOr(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	return h
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "configure [file path to be generated]",
		Example: "configure /etc/alertr-manager/config.yaml",
		Short:   "Generate a configuration file",
		Long: `Generates a configuration file filled with working placeholder values,
ready to be edited and passed to run/validate via --config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}

			raw, err := yaml.Marshal(defaultTemplate())
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, raw, 0o600); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config file %q has been created; edit it and pass it via --config\n", path)
			return nil
		},
	}
}
