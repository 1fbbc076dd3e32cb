package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meur/gearforge/internal/config"
)

var forceWrite bool

// healthCmd checks that the API answers
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is reachable",
	RunE:  runHealth,
}

// initConfigCmd writes the effective configuration to a file
var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the current configuration (defaults, file and env) as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVarP(&forceWrite, "force", "f", false, "Overwrite an existing file")
}

func runHealth(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.Health(cmd.Context()); err != nil {
		return err
	}
	notifySuccess(cmd.OutOrStdout(), "服務器運行正常")
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !forceWrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.Web.APIBaseURL = apiURL
	}
	if timeout > 0 {
		cfg.Web.RequestTimeout = timeout.String()
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	notifySuccess(cmd.OutOrStdout(), "配置已寫入 "+path)
	return nil
}
