package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// ErrMissingCertificate is returned when TLS mode has no key pair on disk.
var ErrMissingCertificate = errors.New("certificate files do not exist")

// CheckCertificates verifies the TLS key pair exists.
func CheckCertificates(cert, key string) error {
	for _, p := range []string{cert, key} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s or %s", ErrMissingCertificate, cert, key)
		}
	}
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Write timeouts stay unset since streams can run for minutes.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Server.ListenPort())
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cert, key := s.config.Certificates()
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.Server.HTTPMode {
			s.logger.Info("Running in HTTP mode (no TLS), suitable behind a reverse proxy", zap.String("addr", addr))
			err = srv.ListenAndServe()
		} else {
			s.logger.Info("Running in HTTPS mode",
				zap.String("addr", addr),
				zap.String("cert", cert),
				zap.String("key", key),
			)
			err = srv.ListenAndServeTLS(cert, key)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
