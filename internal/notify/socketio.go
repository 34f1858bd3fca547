package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/result"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIOOptions configure a socket.io notifier.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	// Timeout bounds the initial connection; zero means 15s.
	Timeout time.Duration
}

// SocketIO emits build notifications over a socket.io connection.
type SocketIO struct {
	client *socket.Socket
	event  string
}

// DialSocketIO connects to the socket.io server at opts.URL and waits for
// the connection to be established.
func DialSocketIO(ctx context.Context, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", opts.URL)
	logger.Debug("Connecting build notifier...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid socket.io URL %q", opts.URL)
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Build notifier connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})
	io.Connect()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	event := opts.Event
	if event == "" {
		event = DefaultEvent
	}
	return &SocketIO{client: io, event: event}, nil
}

// Notify emits the build payload. It does not wait for an acknowledgement.
func (s *SocketIO) Notify(ctx context.Context, p *result.Page, cached bool) error {
	if !s.client.Connected() {
		return fmt.Errorf("socket.io notifier is not connected")
	}
	payload, err := NewPayload(p, cached).asMap()
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Emitting build notification", "event", s.event, "page", p.Name)
	return s.client.Emit(s.event, payload)
}

func (s *SocketIO) Close() error {
	s.client.Disconnect()
	return nil
}
