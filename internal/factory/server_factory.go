package factory

import (
	"fmt"

	"github.com/mikey/contact-guard/internal/adapters/httpapi"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/ports"
	"go.uber.org/zap"
)

// ServerFactory creates the inbound API server
type ServerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ContactService
}

// NewServerFactory creates a new server factory
func NewServerFactory(cfg *config.Config, logger *zap.Logger, service *core.ContactService) *ServerFactory {
	return &ServerFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateServer creates the HTTP server for the contact API
func (f *ServerFactory) CreateServer() (ports.Server, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	handler := httpapi.NewHandler(f.service, f.logger.Named("http"), serverCfg.MaxBodyBytes, serverCfg.AdminToken)
	return httpapi.NewServer(serverCfg, handler.Routes(), f.logger), nil
}
