package cloud

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"evalgo.org/portico/models"
)

// Prober checks whether an instance answers on its routed address.
//
// Probe returns an error only when the probe could not be attempted (for
// example an unusable CA certificate). An unreachable instance is a normal
// result with a non-ok Connection.
type Prober interface {
	Probe(ctx context.Context, creds *Credentials) (models.ProbeResult, error)
}

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 10 * time.Second

// HTTPProber queries the server version endpoint over TLS.
type HTTPProber struct {
	Timeout time.Duration

	// DialContext overrides how connections are opened.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewHTTPProber returns a prober with the default timeout.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{Timeout: DefaultProbeTimeout}
}

type serverVersion struct {
	Version string `json:"version"`
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, creds *Credentials) (models.ProbeResult, error) {
	tlsConfig := &tls.Config{ServerName: creds.Host, MinVersion: tls.VersionTLS12}
	if creds.TLSCA != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(creds.TLSCA)) {
			return models.ProbeResult{}, errors.New("invalid TLS CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	transport := &http.Transport{TLSClientConfig: tlsConfig}
	if p.DialContext != nil {
		transport.DialContext = p.DialContext
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport, Timeout: p.Timeout}

	addr := net.JoinHostPort(creds.Host, strconv.Itoa(creds.Port))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+addr+"/server/version", nil)
	if err != nil {
		return models.ProbeResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	if creds.SecretKey != "" {
		req.Header.Set("Authorization", "Bearer "+creds.SecretKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		state := models.ConnectionFailed
		if errors.Is(err, syscall.ECONNREFUSED) {
			state = models.ConnectionRefused
		}
		return models.ProbeResult{Connection: state, Message: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return models.ProbeResult{
			Connection: models.ConnectionFailed,
			Message:    fmt.Sprintf("server returned %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var sv serverVersion
	if err := json.NewDecoder(resp.Body).Decode(&sv); err != nil {
		return models.ProbeResult{
			Connection: models.ConnectionFailed,
			Message:    fmt.Sprintf("invalid version response: %v", err),
		}, nil
	}
	return models.ProbeResult{Version: sv.Version, Connection: models.ConnectionOK}, nil
}
