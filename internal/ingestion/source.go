package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/your-username/pihole-log-viewer/internal/config"
	"github.com/your-username/pihole-log-viewer/internal/parsing"
)

// Cursor tells a source where the previous import stopped
type Cursor struct {
	AfterID int64     // highest FTL row id already stored
	Since   time.Time // used when no FTL id is known
}

// Source returns raw lines for the parsers
type Source interface {
	Name() string
	Fetch(ctx context.Context, cursor Cursor) ([]string, error)
}

// SSHSource runs a command on the Pi-hole host: the sqlite3 shell over the
// FTL database, or tail over the dnsmasq log.
type SSHSource struct {
	cfg  config.PiholeConfig
	kind string
	dial func(ctx context.Context) (*ssh.Client, error)
}

func NewSSHSource(cfg config.PiholeConfig, kind string) (*SSHSource, error) {
	if cfg.Host == "" {
		return nil, errors.New("PIHOLE_SSH_HOST is not set")
	}
	if kind != config.SourceFTL && kind != config.SourceLog {
		return nil, fmt.Errorf("unknown import source %q", kind)
	}
	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &SSHSource{cfg: cfg, kind: kind}
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	s.dial = func(ctx context.Context) (*ssh.Client, error) {
		d := net.Dialer{Timeout: cfg.Timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return ssh.NewClient(c, chans, reqs), nil
	}
	return s, nil
}

func (s *SSHSource) Name() string { return s.kind }

// Command returns the remote command for the cursor
func (s *SSHSource) Command(cursor Cursor) string {
	if s.kind == config.SourceLog {
		lines := s.cfg.LogLines
		if lines <= 0 {
			lines = 20000
		}
		return fmt.Sprintf("tail -n %d %s", lines, shellQuote(s.cfg.LogPath))
	}
	return fmt.Sprintf("sqlite3 -separator '|' %s %s",
		shellQuote(s.cfg.FTLDB), shellQuote(parsing.FTLQuery(cursor.AfterID, cursor.Since)))
}

func (s *SSHSource) Fetch(ctx context.Context, cursor Cursor) ([]string, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("ssh connect to %s: %w", s.cfg.Host, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	cmd := s.Command(cursor)
	log.Debug().Str("host", s.cfg.Host).Str("command", cmd).Msg("Running remote import command")

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("remote command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		log.Warn().Str("stderr", msg).Msg("Remote import command wrote to stderr")
	}
	return splitLines(stdout.String()), nil
}

func clientConfig(cfg config.PiholeConfig) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("set PIHOLE_SSH_PASSWORD or PIHOLE_SSH_KEY_FILE")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	} else {
		log.Warn().Str("host", cfg.Host).Msg("PIHOLE_SSH_KNOWN_HOSTS not set, host key is not verified")
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
