package providers

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/api"
	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/mdns"
	"github.com/libraryapp/library-server/internal/metrics"
	"github.com/libraryapp/library-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the router and starts listening in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bus := do.MustInvoke[*BusHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	services := &api.Services{
		Store:    storeHandle.Gateway,
		Bus:      bus.Bus,
		Catalog:  do.MustInvoke[*service.CatalogService](i),
		Accounts: do.MustInvoke[*service.AccountService](i),
		Auth:     do.MustInvoke[*auth.ContextBuilder](i),
		Search:   searchHandle.SearchIndex,
		Streams:  sseHandle.Manager,
		Metrics:  do.MustInvoke[*metrics.Metrics](i),
	}

	handler := api.NewServer(services, api.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ComplexityLimit: cfg.GraphQL.ComplexityLimit,
		Playground:      cfg.GraphQL.Playground,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Bind synchronously so a taken port fails startup.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server ready",
		"addr", srv.Addr,
		"graphql", "/graphql",
		"playground", cfg.GraphQL.Playground)

	return &HTTPServerHandle{Server: srv}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable.
type MDNSServiceHandle struct {
	*mdns.Service
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.started && h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService advertises the GraphQL endpoint when enabled.
// Failures are logged and never stop the server.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{}, nil
	}

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		log.Warn("Failed to parse server port for mDNS, using default", "port", cfg.Server.Port)
		port = 4000
	}

	svc := mdns.NewService(log.Logger)
	if err := svc.Start(mdns.Advertisement{Name: cfg.Server.Name, Port: port}); err != nil {
		log.Warn("mDNS advertisement unavailable", "error", err)
		return &MDNSServiceHandle{Service: svc}, nil
	}

	return &MDNSServiceHandle{Service: svc, started: true}, nil
}
