// gearctl is the command-line client for the gearforge backend.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meur/gearforge/internal/client"
	"github.com/meur/gearforge/internal/config"
)

var (
	// Global flags
	apiURL     string
	configPath string
	timeout    time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gearctl",
	Short: "Manage armor inventory and builds",
	Long: `gearctl talks to a running gearforge API.

It adds and removes inventory pieces, runs build searches against target
stat totals and manages saved builds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default: from config or API_BASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gearforge.yaml", "Config file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (default: from config)")

	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryDeleteCmd)

	buildsCmd.AddCommand(buildsListCmd)
	buildsCmd.AddCommand(buildsViewCmd)
	buildsCmd.AddCommand(buildsDeleteCmd)

	rootCmd.AddCommand(referenceCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		notifyError(os.Stderr, client.Message(err))
		os.Exit(1)
	}
}

// newClient builds an API client from flags, falling back to config
func newClient() (*client.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	base := cfg.Web.APIBaseURL
	if apiURL != "" {
		base = apiURL
	}
	d := cfg.GetRequestTimeout()
	if timeout > 0 {
		d = timeout
	}
	return client.New(base, d), nil
}

// confirm asks a yes/no question; anything but y/yes declines
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
