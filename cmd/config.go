package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/mydms/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the mydms configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the mydms state hub and writes the result to the --config path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil {
			fmt.Fprintf(os.Stderr, "Overwriting existing %s\n", cfgFile)
		}
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file plus MYDMS_* overrides)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := yamlv3.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
