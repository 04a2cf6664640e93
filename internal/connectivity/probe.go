package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/flextraff/atcs/internal/httputil"
)

// DefaultProbeHosts are public DNS endpoints used as a generic
// internet-reachability check when no site-specific target exists.
var DefaultProbeHosts = []string{"8.8.8.8:53", "1.1.1.1:53"}

// DialProbe checks reachability by opening a TCP connection to any of
// a list of host:port targets. One reachable host is enough; the hosts
// are alternatives, not a quorum.
type DialProbe struct {
	Hosts []string
}

// Check dials each host in order and succeeds on the first connection.
func (p *DialProbe) Check(ctx context.Context) error {
	if len(p.Hosts) == 0 {
		return errors.New("dial probe has no hosts configured")
	}
	var d net.Dialer
	var lastErr error
	for _, host := range p.Hosts {
		conn, err := d.DialContext(ctx, "tcp", host)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no probe host reachable: %w", lastErr)
}

// HTTPProbe checks a health endpoint, typically the backend's /health
// or the vehicle detection subsystem's heartbeat URL. Any 2xx status
// counts as reachable.
type HTTPProbe struct {
	URL string
	// Client is optional; if nil, http.DefaultClient is used.
	Client httputil.HTTPClient
}

// Check issues a GET against the configured URL.
func (p *HTTPProbe) Check(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", p.URL, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probing %s: unexpected status %d", p.URL, resp.StatusCode)
	}
	return nil
}

// FuncProbe adapts a function to the Probe interface; used by dev mode
// and tests.
type FuncProbe func(ctx context.Context) error

// Check calls the wrapped function.
func (f FuncProbe) Check(ctx context.Context) error { return f(ctx) }
