package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// queryTimeout bounds every runtime API call. The engine must never
// hang on an unresponsive daemon (a paused Docker Desktop is the common
// case); a timeout degrades to ErrRuntimeUnavailable instead.
const queryTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It handles automatic
// socket detection across platforms and maps SDK errors onto the
// engine's error taxonomy so no raw transport error escapes upward.
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client with automatic socket detection.
//
// Detection order:
//  1. DOCKER_HOST environment variable, used as-is when set.
//  2. Platform default socket paths:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine
//
// Returns model.ErrRuntimeUnavailable (wrapped) when no socket is found
// or the client cannot be constructed. Callers in process-only paths
// treat that as a degraded capability, not a fatal error.
func NewClient() (*Client, error) {
	dockerHost := os.Getenv("DOCKER_HOST")
	if dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRuntimeUnavailable, err)
	}

	return newClientWithHost(host)
}

// newClientWithHost creates a client for a specific connection string.
// API version negotiation keeps the binary compatible across daemon
// versions without pinning one.
func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating client for host %q: %v", model.ErrRuntimeUnavailable, host, err)
	}

	return &Client{inner: c}, nil
}

// detectDockerHost probes the known socket locations for the current
// platform. Existence is checked rather than connectivity: a stat is
// cheap and needs no running daemon, and Ping covers the rest.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Docker Desktop symlinks /var/run/docker.sock, but newer
		// versions sometimes only create the per-user socket.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// Named pipes don't stat; a short dial probe is the only way
		// to check whether the Docker pipe exists.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the Docker host URI for the first socket
// path that exists, checked in preference order.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of %v — is Docker running?", paths)
}

// Ping verifies the daemon is reachable, bounded by queryTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return fmt.Errorf("%w: daemon not responding: %v", model.ErrRuntimeUnavailable, err)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
