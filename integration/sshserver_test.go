//go:build integration

package integration

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// reply is the canned outcome of one exec request. A negative exit status
// closes the channel without reporting one, like a host going down mid-command.
type reply struct {
	stdout string
	stderr string
	exit   int
}

// sshServer is a minimal password-authenticated SSH server answering exec
// requests from a fixed table.
type sshServer struct {
	ln       net.Listener
	config   *ssh.ServerConfig
	replies  map[string]reply
	mu       sync.Mutex
	commands []string
}

func newSSHServer(t *testing.T, user, password string, replies map[string]reply) *sshServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("invalid credentials")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &sshServer{
		ln:      ln,
		config:  cfg,
		replies: replies,
	}
	t.Cleanup(func() { _ = ln.Close() })

	go s.serve()
	return s
}

func (s *sshServer) addr() *net.TCPAddr {
	return s.ln.Addr().(*net.TCPAddr)
}

func (s *sshServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *sshServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *sshServer) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	_, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, chReqs, err := newChan.Accept()
		if err != nil {
			return
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *sshServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		r, ok := s.replies[payload.Command]
		if !ok {
			r = reply{stderr: "sh: command not found\n", exit: 127}
		}

		_, _ = ch.Write([]byte(r.stdout))
		_, _ = ch.Stderr().Write([]byte(r.stderr))
		if r.exit >= 0 {
			status := make([]byte, 4)
			binary.BigEndian.PutUint32(status, uint32(r.exit))
			_, _ = ch.SendRequest("exit-status", false, status)
		}
		return
	}
}
