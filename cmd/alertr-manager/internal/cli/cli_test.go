package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcmr/alertr-manager/cmd/alertr-manager/internal/cli"
)

func TestCLI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "cli suite")
}

const validYAML = `
server:
  address: alertr.example.com:443
  tls:
    serverCAFile: ca.pem
identity:
  version: 0.4
  hostname: manager-1
  nodeType: manager
credentials:
  username: manager
  password: secret
`

var _ = Describe("Root", func() {
	It("runs validate against a well-formed config", func() {
		dir, err := os.MkdirTemp("", "alertr-cli")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		p := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(p, []byte(validYAML), 0o600)).To(Succeed())

		root := cli.Root()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"validate", "--config", p})

		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).ToNot(BeEmpty())
	})

	It("generates a config file that validate accepts", func() {
		dir, err := os.MkdirTemp("", "alertr-cli")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		p := filepath.Join(dir, "generated.yaml")

		root := cli.Root()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"configure", p})
		Expect(root.Execute()).To(Succeed())

		raw, err := os.ReadFile(p)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring("pingInterval: 30s"))

		root = cli.Root()
		root.SetOut(&out)
		root.SetArgs([]string{"validate", "--config", p})
		Expect(root.Execute()).To(Succeed())
	})

	It("prints a version string", func() {
		root := cli.Root()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"version"})
		Expect(root.Execute()).To(Succeed())
	})

	It("rejects validate without --config", func() {
		root := cli.Root()
		root.SetArgs([]string{"validate"})
		Expect(root.Execute()).To(HaveOccurred())
	})
})
