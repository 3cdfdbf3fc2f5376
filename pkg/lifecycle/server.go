/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerOptions describes an HTTP service managed by RunServer.
type ServerOptions struct {
	ListenAddr  string
	ServiceName string
	Handler     http.Handler
	// Listener overrides ListenAddr; tests pass a pre-bound listener.
	Listener net.Listener
	// WriteTimeout bounds a whole tool call, including controller dwell and probing.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// OnShutdown runs after the server has stopped accepting requests.
	OnShutdown func(ctx context.Context) error
}

// RunServer serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func RunServer(ctx context.Context, opts *ServerOptions, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	srv := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           opts.Handler,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		var err error

		if opts.Listener != nil {
			err = srv.Serve(opts.Listener)
		} else {
			err = srv.ListenAndServe()
		}

		errCh <- err
	}()

	log.Info().
		Str("service", opts.ServiceName).
		Str("addr", opts.ListenAddr).
		Msg("Server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("%s: %w", opts.ServiceName, err)
	case <-ctx.Done():
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info().Str("service", opts.ServiceName).Msg("Shutting down server")

	err := srv.Shutdown(shutdownCtx)

	if opts.OnShutdown != nil {
		err = errors.Join(err, opts.OnShutdown(shutdownCtx))
	}

	return err
}
