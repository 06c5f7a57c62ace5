// Package web_server serves the websocket endpoint for the host game server
// and a small JSON API for inspecting and administrating sessions.
package web_server

import (
	"context"
	nativeerrors "errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
)

const (
	// DefaultServeAddr is the default address to serve on.
	DefaultServeAddr = ":8080"
	// DefaultWriteTimeout is the default timeout for writing.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultReadTimeout is the default timeout for reading.
	DefaultReadTimeout = 15 * time.Second
)

type WebServer struct {
	config     Config
	httpServer *http.Server
	router     *mux.Router
	running    bool
}

// Config is the configuration that is used in order to create and run a web
// server.
type Config struct {
	// ServeAddr is the address for the web server to listen to.
	ServeAddr string
	// WriteTimeout is the duration to wait until write fails with a timeout.
	WriteTimeout time.Duration
	// ReadTimeout is the duration to wait until read fails with a timeout.
	ReadTimeout time.Duration
}

// NewWebServer creates a new WebServer. It expects the passed Config to be
// filled correctly. If you need default values, these are exported as
// DefaultServeAddr, DefaultWriteTimeout and DefaultReadTimeout. Run it with
// WebServer.Run and do not forget to call WebServer.PopulateRoutes before.
func NewWebServer(config Config) (*WebServer, error) {
	if config.ServeAddr == "" {
		return nil, nativeerrors.New("no addr provided in config")
	}
	server := WebServer{
		config: config,
		router: mux.NewRouter(),
	}
	server.router.Use(loggingMiddleware)
	server.router.Use(noCacheMiddleware)
	server.router.NotFoundHandler = noCacheMiddleware(loggingMiddleware(http.NotFoundHandler()))
	server.httpServer = &http.Server{
		Handler:      server.router,
		Addr:         config.ServeAddr,
		WriteTimeout: config.WriteTimeout,
		ReadTimeout:  config.ReadTimeout,
	}
	return &server, nil
}

// Run starts the web server and blocks until the given context is done.
func (server *WebServer) Run(ctx context.Context) error {
	if server.running {
		return nativeerrors.New("web server already running")
	}
	server.running = true
	go func() {
		logging.WebServerLogger.Info("web server running", zap.String("addr", server.config.ServeAddr))
		err := server.httpServer.ListenAndServe()
		if err != nil && !nativeerrors.Is(err, http.ErrServerClosed) {
			errors.Log(logging.WebServerLogger, errors.Wrap(err, "listen and serve", nil))
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := server.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return errors.Wrap(err, "shutdown web server", nil)
	}
	return nil
}
