package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/server/middleware"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

type Server struct {
	Router        *mux.Router
	Stores        *store.Stores
	Config        *config.ScanstoreConfig
	Jobs          worker.Enqueuer
	JWTMiddleware *middleware.JWTAuthenticator
	Logger        *slog.Logger
	srv           *http.Server
	protected     *mux.Router
}

func NewServer(
	stores *store.Stores,
	cfg *config.ScanstoreConfig,
	jobs worker.Enqueuer,
	host string,
	port string,
	logger *slog.Logger,
) *Server {
	if cfg == nil {
		cfg = config.Get()
	}

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		Addr:         host + ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Router:        router,
		Stores:        stores,
		Config:        cfg,
		Jobs:          jobs,
		JWTMiddleware: middleware.NewJWTAuthenticator([]byte(cfg.JWTSecret)),
		Logger:        logging.Component(logger, "server"),
		srv:           srv,
	}
}

// Protected returns the subrouter of authenticated routes. Its requests pass
// the JWT middleware and writes are audited.
func (s *Server) Protected() *mux.Router {
	if s.protected == nil {
		s.protected = s.Router.NewRoute().Subrouter()
		s.protected.Use(s.JWTMiddleware.Middleware, middleware.Audit)
	}
	return s.protected
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) Start() error {
	s.Logger.Info("listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an already bound listener.
func (s *Server) StartWithListener(l net.Listener) error {
	s.Logger.Info("listening", "addr", l.Addr().String())
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
