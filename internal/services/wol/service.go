// Package wol wakes the destination host before a run and waits until it answers.
package wol

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

const (
	magicPacketPort     = "9"
	defaultBroadcastIP  = "255.255.255.255"
	defaultPollInterval = 5 * time.Second
	pollRequestTimeout  = 5 * time.Second
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

// Client sends magic packets.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UDPClient sends magic packets over UDP using mdlayher/wol.
type UDPClient struct{}

// Wake broadcasts a magic packet for mac on the given broadcast address.
func (c *UDPClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return errors.Newf("invalid broadcast IP: %s", broadcastIP)
	}

	client, err := wol.NewClient()
	if err != nil {
		return errors.Wrap(err, "creating wake-on-lan client")
	}
	defer func() { _ = client.Close() }()

	if err := client.Wake(net.JoinHostPort(ip.String(), magicPacketPort), mac); err != nil {
		return errors.Wrap(err, "sending magic packet")
	}
	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient  Client
	httpClient HTTPClient
	logger     zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		wolClient:  &UDPClient{},
		httpClient: &http.Client{Timeout: pollRequestTimeout},
		logger:     logger,
	}
}

// NewWithClients creates a new WOL service with custom clients (for testing).
func NewWithClients(logger zerolog.Logger, wolClient Client, httpClient HTTPClient) *Impl {
	return &Impl{
		wolClient:  wolClient,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Wake sends the magic packet and, when a poll URL is configured, blocks until the host
// answers over HTTP and the stabilize wait has passed.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	result := &models.WOLResult{}
	start := time.Now()
	defer func() { result.WaitDuration = time.Since(start) }()

	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		result.Error = errors.Wrapf(err, "invalid MAC address %q", cfg.MACAddress)
		return result, nil
	}

	broadcast := cfg.BroadcastIP
	if broadcast == "" {
		broadcast = defaultBroadcastIP
	}

	s.logger.Info().
		Str("mac", mac.String()).
		Str("broadcast", broadcast).
		Msg("sending magic packet")

	if err := s.wolClient.Wake(broadcast, mac); err != nil {
		result.Error = err
		return result, nil
	}
	result.PacketSent = true

	if cfg.PollURL == "" {
		result.HostReady = true
		return result, nil
	}

	s.logger.Info().
		Str("url", cfg.PollURL).
		Dur("timeout", cfg.Timeout).
		Msg("waiting for destination host")

	if err := s.waitForHost(ctx, cfg); err != nil {
		result.Error = err
		return result, nil
	}

	if cfg.StabilizeWait > 0 {
		s.logger.Debug().Dur("wait", cfg.StabilizeWait).Msg("waiting for destination host to settle")
		if err := sleep(ctx, cfg.StabilizeWait); err != nil {
			result.Error = err
			return result, nil
		}
	}

	result.HostReady = true
	s.logger.Info().Dur("duration", time.Since(start)).Msg("destination host is ready")

	return result, nil
}

// waitForHost polls the configured URL until any HTTP response arrives.
func (s *Impl) waitForHost(ctx context.Context, cfg models.WOLConfig) error {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(cfg.Timeout)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return errors.Newf("timeout waiting for %s after %d attempts", cfg.PollURL, attempt-1)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.PollURL, nil)
		if err != nil {
			return errors.Wrap(err, "building poll request")
		}

		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			return nil
		}
		s.logger.Debug().Err(err).Int("attempt", attempt).Msg("destination host not ready yet")

		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
