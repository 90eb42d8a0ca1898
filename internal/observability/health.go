// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the auth API.
const ServiceName = "holoauth.v1.Auth"

// HealthServer serves the standard gRPC health protocol and keeps its status
// in step with a ReadinessChecker.
type HealthServer struct {
	addr     string
	isReady  ReadinessChecker
	interval time.Duration

	mu       sync.Mutex
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHealthServer creates a gRPC health server on addr. The readiness checker
// is polled every interval; a nil checker always reports serving.
func NewHealthServer(addr string, readinessChecker ReadinessChecker, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HealthServer{addr: addr, isReady: readinessChecker, interval: interval}
}

// Start begins serving. The returned channel receives a serve error, if any,
// and is closed when the server stops.
func (h *HealthServer) Start() (<-chan error, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.server != nil {
		return nil, oops.Errorf("health server already running")
	}

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return nil, oops.With("addr", h.addr).Wrap(err)
	}

	h.listener = listener
	h.health = health.NewServer()
	h.server = grpc.NewServer()
	healthpb.RegisterHealthServer(h.server, h.health)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	h.update(ctx)
	go h.poll(ctx, h.health, h.done)

	srv := h.server
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && serveErr != grpc.ErrServerStopped {
			slog.Error("health server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("grpc health server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop marks every service as not serving and stops the server gracefully.
func (h *HealthServer) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.server == nil {
		return
	}
	h.cancel()
	<-h.done
	h.health.Shutdown()
	h.server.GracefulStop()
	h.server = nil
	h.listener = nil
	slog.Info("grpc health server stopped")
}

// Addr returns the listen address, or "" when not running.
func (h *HealthServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return ""
}

func (h *HealthServer) poll(ctx context.Context, hs *health.Server, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.setStatus(hs, h.check(ctx))
		}
	}
}

func (h *HealthServer) update(ctx context.Context) {
	h.setStatus(h.health, h.check(ctx))
}

func (h *HealthServer) check(ctx context.Context) bool {
	if h.isReady == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.isReady(ctx)
}

func (h *HealthServer) setStatus(hs *health.Server, ready bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ready {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}
