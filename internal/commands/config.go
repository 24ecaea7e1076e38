package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evalgo.org/portico/internal/config"
)

var initConfigForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runShowConfig,
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&initConfigForce, "force", false, "overwrite an existing config.yaml")
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(initConfigCmd)
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	data, err := showConfig(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// showConfig renders cfg as YAML. The secret key is never printed.
func showConfig(c *config.Config) ([]byte, error) {
	redacted := *c
	if redacted.Cloud.SecretKey != "" {
		redacted.Cloud.SecretKey = "********"
	}
	return yaml.Marshal(&redacted)
}

const defaultConfig = `# Portico Configuration

cloud:
  api_url: https://api.portico.cloud/v1/
  request_rate: 10
  request_timeout: 30s
  probe_concurrency: 4

# portable:
#   installs_dir: ~/.local/share/portico/portable
#   data_dir: ~/.local/share/portico/data

logging:
  level: info
  format: text
  output: stderr
`

func runInitConfig(cmd *cobra.Command, args []string) error {
	if err := writeDefaultConfig("config.yaml", initConfigForce); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Created config.yaml")
	return nil
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}
