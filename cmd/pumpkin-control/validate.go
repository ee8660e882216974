package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration (file, defaults and environment) without starting the server.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Server:")
	fmt.Fprintf(out, "  Listen: %s\n", cfg.Server.Listen)
	fmt.Fprintf(out, "  CORS origins: %v\n", cfg.Server.CORSOrigins)
	fmt.Fprintf(out, "  Read timeout: %s\n", cfg.Server.ReadTimeout)
	fmt.Fprintf(out, "  Write timeout: %s\n", cfg.Server.WriteTimeout)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Storage:")
	fmt.Fprintf(out, "  Path: %s\n", cfg.Storage.Path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "SSH:")
	fmt.Fprintf(out, "  Host key policy: %s\n", cfg.SSH.HostKeyPolicy)
	if cfg.SSH.KnownHostsFile != "" {
		fmt.Fprintf(out, "  Known hosts file: %s\n", cfg.SSH.KnownHostsFile)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "WOL Configuration:")
		fmt.Fprintf(out, "  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Fprintf(out, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		fmt.Fprintf(out, "  Wait timeout: %s\n", cfg.WOL.WaitTimeout)
		fmt.Fprintf(out, "  Poll interval: %s\n", cfg.WOL.PollInterval)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	return nil
}
