// Package models contains the data structures used throughout pumpkin-control.
package models

import "time"

// AppConfig holds the complete configuration for a gateway process.
type AppConfig struct {
	Server   ServerSettings
	Storage  StorageSettings
	SSH      SSHSettings
	WOL      *WOLConfig      // nil if not configured
	Telegram *TelegramConfig // nil if not configured
}

// ServerSettings holds HTTP listener settings.
type ServerSettings struct {
	Listen       string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageSettings holds persistence settings.
type StorageSettings struct {
	Path string // SQLite file path, ":memory:" for a throwaway database
}

// Host key policies accepted in SSHSettings.HostKeyPolicy.
const (
	HostKeyInsecure = "insecure"
	HostKeyTOFU     = "tofu"
	HostKeyStrict   = "strict"
)

// SSHSettings holds process-wide remote session settings.
type SSHSettings struct {
	HostKeyPolicy  string
	KnownHostsFile string // required for tofu and strict
}
