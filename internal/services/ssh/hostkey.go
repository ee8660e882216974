package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyCallback builds the host key check for the configured policy.
func HostKeyCallback(settings models.SSHSettings, logger zerolog.Logger) (ssh.HostKeyCallback, error) {
	switch settings.HostKeyPolicy {
	case "", models.HostKeyInsecure:
		logger.Warn().Msg("host key verification disabled, any host key is accepted")
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit policy
	case models.HostKeyStrict:
		cb, err := knownhosts.New(settings.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts from %s: %w", settings.KnownHostsFile, err)
		}
		return cb, nil
	case models.HostKeyTOFU:
		if err := ensureFile(settings.KnownHostsFile); err != nil {
			return nil, err
		}
		t := &tofu{path: settings.KnownHostsFile, logger: logger}
		return t.check, nil
	default:
		return nil, fmt.Errorf("unknown host key policy %q", settings.HostKeyPolicy)
	}
}

// tofu trusts a host key the first time a host is seen and pins it afterwards.
type tofu struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

func (t *tofu) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-read on every check so entries appended earlier are honored.
	known, err := knownhosts.New(t.path)
	if err != nil {
		return fmt.Errorf("failed to load known hosts from %s: %w", t.path, err)
	}

	err = known(hostname, remote, key)
	var keyErr *knownhosts.KeyError
	if err == nil || !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
		return err
	}

	// Host unknown: pin this key.
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600) //nolint:gosec // path from config
	if err != nil {
		return fmt.Errorf("failed to open known hosts %s: %w", t.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}

	t.logger.Warn().
		Str("host", hostname).
		Str("fingerprint", ssh.FingerprintSHA256(key)).
		Msg("trusting new host key")
	return nil
}

func ensureFile(path string) error {
	if path == "" {
		return fmt.Errorf("known hosts file is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create known hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // path from config
	if err != nil {
		return fmt.Errorf("failed to create known hosts file: %w", err)
	}
	return f.Close()
}
