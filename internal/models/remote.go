package models

import "time"

// DefaultSSHPort is used when a saved configuration omits the port.
const DefaultSSHPort = 22

// RemoteConfig is the single credential set for the managed device.
type RemoteConfig struct {
	Host     string    `json:"host"`
	Port     int       `json:"port"`
	Username string    `json:"username"`
	Password string    `json:"-"`
	SavedAt  time.Time `json:"-"`
}

// PublicRemoteConfig is the read view of a RemoteConfig. It never carries the secret.
type PublicRemoteConfig struct {
	Configured bool   `json:"configured"`
	Host       string `json:"host,omitempty"`
	Username   string `json:"username,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// Redacted returns the public view of the configuration.
func (c RemoteConfig) Redacted() PublicRemoteConfig {
	return PublicRemoteConfig{
		Configured: true,
		Host:       c.Host,
		Username:   c.Username,
		Port:       c.Port,
	}
}
