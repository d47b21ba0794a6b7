// Package httpapi is the HTTP façade: order intake, status queries,
// secret reveal, and the Prometheus /metrics endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fusion-relay/relayer/internal/config"
	"github.com/fusion-relay/relayer/internal/types"
)

// OrderService is the subset of coordinator + store operations the
// HTTP boundary depends on.
type OrderService interface {
	CreateOrder(ctx context.Context, req *types.OrderRequest) (*types.SwapOrder, error)
	SubmitSecret(ctx context.Context, orderHash, secret string) error
	GetByHash(orderHash string) (*types.SwapOrder, error)
	ListActive() ([]*types.SwapOrder, error)
	ListByMaker(maker string) ([]*types.SwapOrder, error)
}

// Server is the relayer's HTTP API server.
type Server struct {
	server  *http.Server
	cfg     config.API
	service OrderService
	mux     *http.ServeMux
}

// NewServer builds a Server with every route registered.
func NewServer(cfg config.API, service OrderService) *Server {
	mux := http.NewServeMux()
	s := &Server{
		cfg:     cfg,
		service: service,
		mux:     mux,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

// Start runs the HTTP server until ctx is cancelled, then shuts it
// down within ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("httpapi: listening on %s", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.cors(s.notFound))
	s.mux.HandleFunc("/health", s.cors(s.health))
	s.mux.HandleFunc("/orders", s.cors(s.orders))
	s.mux.HandleFunc("/orders/", s.cors(s.orderDetails))
	s.mux.HandleFunc("/secret", s.cors(s.secret))
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "relayer",
	})
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listOrders(w, r)
	case http.MethodPost:
		s.createOrder(w, r)
	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []*types.SwapOrder
		err    error
	)
	if maker := r.URL.Query().Get("maker"); maker != "" {
		orders, err = s.service.ListByMaker(maker)
	} else {
		orders, err = s.service.ListActive()
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list orders", err)
		return
	}

	redacted := make([]*types.SwapOrder, len(orders))
	for i, o := range orders {
		redacted[i] = o.Redacted()
	}
	s.writeJSON(w, http.StatusOK, &types.OrderListResponse{Orders: redacted, Count: len(redacted)})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	if err := validateOrderRequest(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid order request", err)
		return
	}

	order, err := s.service.CreateOrder(r.Context(), &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to submit order", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, order.Redacted())
}

func (s *Server) orderDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusBadRequest, "order hash required", nil)
		return
	}
	orderHash := parts[0]

	order, err := s.service.GetByHash(orderHash)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "order not found", err)
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		s.writeJSON(w, http.StatusOK, &types.OrderStatusResponse{
			OrderHash: order.OrderHash, State: order.State, CreatedAt: order.CreatedAt, UpdatedAt: order.UpdatedAt,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, order.Redacted())
}

func (s *Server) secret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req types.SecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	if req.OrderHash == "" || req.Secret == "" {
		s.writeError(w, http.StatusBadRequest, "orderHash and secret are required", nil)
		return
	}

	if err := s.service.SubmitSecret(r.Context(), req.OrderHash, req.Secret); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to reveal secret", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "endpoint not found", nil)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("httpapi: failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]interface{}{"error": message, "status": status, "timestamp": time.Now().Unix()}
	if err != nil {
		log.Printf("httpapi: %s: %v", message, err)
		resp["details"] = err.Error()
	}
	s.writeJSON(w, status, resp)
}
