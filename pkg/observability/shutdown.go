package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedServer struct {
	name   string
	server *http.Server
}

type namedFunc struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains HTTP servers and then releases the resources
// registered with it (database, Redis, tracing, schedulers).
type ShutdownManager struct {
	logger          *Logger
	shutdownTimeout time.Duration

	mu      sync.Mutex
	servers []namedServer
	funcs   []namedFunc
}

// NewShutdownManager creates a new shutdown manager. A zero timeout
// defaults to 30s.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		shutdownTimeout: timeout,
	}
}

// RegisterServer adds an HTTP server to drain before the shutdown funcs run
func (sm *ShutdownManager) RegisterServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, namedServer{name: name, server: server})
}

// RegisterShutdownFunc registers a function to call during shutdown
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedFunc{name: name, fn: fn})
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives or ctx is done
func (sm *ShutdownManager) WaitForSignal(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		sm.logger.Infof("Received signal %s, starting graceful shutdown", sig)
	case <-ctx.Done():
		sm.logger.Info("Context cancelled, starting graceful shutdown")
	}
}

// Shutdown drains every registered server, then runs the shutdown funcs
// concurrently, all within the configured timeout
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	sm.mu.Lock()
	servers := append([]namedServer(nil), sm.servers...)
	funcs := append([]namedFunc(nil), sm.funcs...)
	sm.mu.Unlock()

	var errs []error

	for _, s := range servers {
		log := sm.logger.WithField("server", s.name)
		log.Info("Shutting down HTTP server")
		if err := s.server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("HTTP server shutdown error")
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))

	for _, f := range funcs {
		wg.Add(1)
		go func(f namedFunc) {
			defer wg.Done()
			log := sm.logger.WithField("component", f.name)

			err := func() (err error) {
				defer func() {
					if perr := MustRecover(recover()); perr != nil {
						err = perr
					}
				}()
				return f.fn(ctx)
			}()
			if err != nil {
				log.WithError(err).Error("Shutdown function failed")
				errChan <- fmt.Errorf("%s: %w", f.name, err)
				return
			}
			log.Debug("Shutdown function complete")
		}(f)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Shutdown timeout reached, forcing shutdown")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}
