package testkit

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MailpitModule wraps a Mailpit container: an SMTP sink with an HTTP API
// for inspecting received messages.
type MailpitModule struct {
	container testcontainers.Container
	smtpHost  string
	smtpPort  int
	apiURL    string
}

// SMTPHost returns the host of the SMTP listener.
func (m *MailpitModule) SMTPHost() string { return m.smtpHost }

// SMTPPort returns the mapped port of the SMTP listener.
func (m *MailpitModule) SMTPPort() int { return m.smtpPort }

// APIURL returns the base URL of the Mailpit HTTP API.
func (m *MailpitModule) APIURL() string { return m.apiURL }

// Terminate stops the container.
func (m *MailpitModule) Terminate(ctx context.Context) error {
	if m.container == nil {
		return nil
	}
	return m.container.Terminate(ctx)
}

// StartMailpit starts a Mailpit container that accepts any credentials over
// plain SMTP. If cfg.MailpitSMTP is set, no container is started.
func StartMailpit(ctx context.Context, cfg *Config) (*MailpitModule, error) {
	if cfg.MailpitSMTP != "" {
		host, portStr, err := net.SplitHostPort(cfg.MailpitSMTP)
		if err != nil {
			return nil, fmt.Errorf("parse TEST_MAILPIT_SMTP %q: %w", cfg.MailpitSMTP, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("parse TEST_MAILPIT_SMTP port %q: %w", portStr, err)
		}
		return &MailpitModule{smtpHost: host, smtpPort: port, apiURL: cfg.MailpitAPI}, nil
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.MailpitImage,
		ExposedPorts: []string{"1025/tcp", "8025/tcp"},
		Env: map[string]string{
			"MP_SMTP_AUTH_ACCEPT_ANY":     "true",
			"MP_SMTP_AUTH_ALLOW_INSECURE": "true",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("1025/tcp").WithStartupTimeout(cfg.StartupTimeout),
			wait.ForListeningPort("8025/tcp").WithStartupTimeout(cfg.StartupTimeout),
		),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start mailpit container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("get mailpit host: %w", err)
	}
	smtpPort, err := ctr.MappedPort(ctx, "1025/tcp")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("get mailpit smtp port: %w", err)
	}
	apiPort, err := ctr.MappedPort(ctx, "8025/tcp")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("get mailpit api port: %w", err)
	}
	port, err := strconv.Atoi(smtpPort.Port())
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("parse mailpit smtp port %q: %w", smtpPort.Port(), err)
	}

	return &MailpitModule{
		container: ctr,
		smtpHost:  host,
		smtpPort:  port,
		apiURL:    "http://" + net.JoinHostPort(host, apiPort.Port()),
	}, nil
}
