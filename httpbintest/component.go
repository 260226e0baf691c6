package httpbintest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/courier/component"
	"github.com/kbukum/courier/logger"
)

const shutdownTimeout = 5 * time.Second

// Component serves the fake on a fixed address inside a component.Registry.
// HTTP/2 cleartext is accepted next to HTTP/1.1.
type Component struct {
	addr string
	log  *logger.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a stopped fake bound to addr once started. Use port 0
// to pick a free port and read it back with Addr.
func NewComponent(addr string, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Nop()
	}
	return &Component{addr: addr, log: log.WithComponent("httpbin")}
}

func (c *Component) Name() string { return "httpbin" }

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("httpbin failed to bind %s: %w", c.addr, err)
	}
	srv := &http.Server{
		Handler:           h2c.NewHandler(Handler(c.log), &http2.Server{IdleTimeout: 120 * time.Second}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.server, c.listener = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	c.log.Info("httpbin listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	srv := c.server
	c.server, c.listener = nil, nil
	c.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpbin shutdown: %w", err)
	}
	return nil
}

func (c *Component) Health(_ context.Context) component.Health {
	if c.Addr() == "" {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: c.Name(), Type: "http-server", Details: "addr=" + c.addr}
}

// Addr returns the bound address, or "" while stopped.
func (c *Component) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}
