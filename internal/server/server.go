package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dygy/sheetplay/internal/pipeline"
)

// Config holds server configuration
type Config struct {
	Port     int
	Pipeline pipeline.Config // base run parameters; InputPath is set per job
}

// Server is the HTTP front end for asynchronous conversions.
type Server struct {
	config Config
	router *chi.Mux
	logger *slog.Logger
	jobs   *JobManager
}

// New creates a new server
func New(cfg Config) (*Server, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		jobs:   NewJobManager(cfg.Pipeline, logger),
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Post("/convert", s.handleConvert)
	r.Get("/status/{id}", s.handleStatus)
	r.Get("/download/{id}/midi", s.handleDownloadMIDI)
	r.Get("/download/{id}/mp3", s.handleDownloadMP3)
}

// Run starts the server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads can be large scans
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	s.logger.Info("server starting", slog.Int("port", s.config.Port))

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}
