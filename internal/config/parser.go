// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PUMPKIN_SERVER_LISTEN.
const EnvPrefix = "PUMPKIN"

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with defaults and environment
// overrides applied.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.listen", ":8001")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("storage.path", "pumpkin-control.db")
	v.SetDefault("ssh.host_key_policy", models.HostKeyInsecure)
	v.SetDefault("ssh.known_hosts_file", "")
	v.SetDefault("wol.mac_address", "")
	v.SetDefault("wol.broadcast_ip", "255.255.255.255")
	v.SetDefault("wol.wait_timeout", 2*time.Minute)
	v.SetDefault("wol.poll_interval", 5*time.Second)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")

	return &Parser{v: v}
}

// Load builds the configuration from defaults and the environment only.
func (p *Parser) Load() (*models.AppConfig, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.AppConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.AppConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.AppConfig, error) {
	cfg := &models.AppConfig{}

	cfg.Server = models.ServerSettings{
		Listen:       p.v.GetString("server.listen"),
		CORSOrigins:  p.v.GetStringSlice("server.cors_origins"),
		ReadTimeout:  p.v.GetDuration("server.read_timeout"),
		WriteTimeout: p.v.GetDuration("server.write_timeout"),
	}

	cfg.Storage = models.StorageSettings{
		Path: p.expandEnv(p.v.GetString("storage.path")),
	}

	cfg.SSH = models.SSHSettings{
		HostKeyPolicy:  strings.ToLower(p.v.GetString("ssh.host_key_policy")),
		KnownHostsFile: p.expandEnv(p.v.GetString("ssh.known_hosts_file")),
	}

	// Wake-on-LAN is enabled by setting a MAC address.
	if mac := p.expandEnv(p.v.GetString("wol.mac_address")); mac != "" {
		cfg.WOL = &models.WOLConfig{
			MACAddress:   mac,
			BroadcastIP:  p.v.GetString("wol.broadcast_ip"),
			WaitTimeout:  p.v.GetDuration("wol.wait_timeout"),
			PollInterval: p.v.GetDuration("wol.poll_interval"),
		}
	}

	// Parse optional Telegram config.
	token := p.expandEnv(p.v.GetString("telegram.bot_token"))
	chatID := p.expandEnv(p.v.GetString("telegram.chat_id"))
	if token != "" || chatID != "" {
		if token == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if chatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
		cfg.Telegram = &models.TelegramConfig{
			BotToken: token,
			ChatID:   chatID,
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.AppConfig) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}

	if cfg.Storage.Path == "" {
		return errors.New("storage.path is required")
	}

	switch cfg.SSH.HostKeyPolicy {
	case "", models.HostKeyInsecure:
	case models.HostKeyTOFU, models.HostKeyStrict:
		if cfg.SSH.KnownHostsFile == "" {
			return fmt.Errorf("ssh.known_hosts_file is required for host_key_policy %q", cfg.SSH.HostKeyPolicy)
		}
	default:
		return fmt.Errorf("ssh.host_key_policy must be one of: insecure, tofu, strict")
	}

	if cfg.WOL != nil {
		if _, err := net.ParseMAC(cfg.WOL.MACAddress); err != nil {
			return fmt.Errorf("wol.mac_address is invalid: %w", err)
		}
		if net.ParseIP(cfg.WOL.BroadcastIP) == nil {
			return fmt.Errorf("wol.broadcast_ip is invalid: %q", cfg.WOL.BroadcastIP)
		}
		if cfg.WOL.WaitTimeout < 0 {
			return errors.New("wol.wait_timeout must not be negative")
		}
		if cfg.WOL.WaitTimeout > 0 && cfg.WOL.PollInterval <= 0 {
			return errors.New("wol.poll_interval must be positive")
		}
	}

	return nil
}
