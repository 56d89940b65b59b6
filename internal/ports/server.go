package ports

import (
	"context"
	"net"
)

// Server defines the interface for the inbound contact API
type Server interface {
	// Start binds the listener and serves in the background
	Start() error

	// Stop shuts the server down, waiting for in-flight requests until ctx is done
	Stop(ctx context.Context) error

	// Addr returns the bound address once started
	Addr() net.Addr
}
