package graceful

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flash-service/flash_service/pkg/logger"
)

// Shutdowner is a component that stops within a deadline
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownManager stops the HTTP server, registered components and closers in that order
type ShutdownManager struct {
	server      *http.Server
	timeout     time.Duration
	shutdowners []Shutdowner
	closers     []namedCloser
	logger      *logger.Logger
	signals     chan os.Signal
}

type namedCloser struct {
	name   string
	closer io.Closer
}

func NewShutdownManager(server *http.Server, timeout time.Duration, logger *logger.Logger) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		server:  server,
		timeout: timeout,
		logger:  logger,
		signals: make(chan os.Signal, 1),
	}
}

// Register adds a component stopped after the server stops accepting requests
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// RegisterCloser adds a resource closed last, such as the database pool or redis client
func (sm *ShutdownManager) RegisterCloser(name string, c io.Closer) {
	sm.closers = append(sm.closers, namedCloser{name: name, closer: c})
}

// WaitForShutdown blocks until SIGINT or SIGTERM and then shuts everything down
func (sm *ShutdownManager) WaitForShutdown() {
	signal.Notify(sm.signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sm.signals
	signal.Stop(sm.signals)

	sm.logger.Info("Shutting down gracefully...", "signal", sig.String())
	sm.Shutdown()
}

// Shutdown runs the shutdown sequence once
func (sm *ShutdownManager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	// Stop accepting requests first so in-flight ledger transactions can finish
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", "error", err)
		}
	}

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(sm.timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	for _, c := range sm.closers {
		if err := c.closer.Close(); err != nil {
			sm.logger.Warn("Close error", "resource", c.name, "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
