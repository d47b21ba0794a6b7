package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fusion-relay/relayer/internal/config"
	"github.com/fusion-relay/relayer/internal/relayerr"
	"github.com/fusion-relay/relayer/internal/types"
)

// stubOrderService is an in-memory OrderService stand-in — the real
// implementation is a *coordinator.Coordinator backed by a live
// Postgres store, which this package has no way to stand up in a unit
// test.
type stubOrderService struct {
	createResult *types.SwapOrder
	createErr    error
	createCalls  int

	getResult *types.SwapOrder
	getErr    error

	listResult []*types.SwapOrder
	listErr    error

	submitSecretCalls int
	submitSecretErr   error
	lastSecret        string
	lastOrderHash     string
}

func (s *stubOrderService) CreateOrder(ctx context.Context, req *types.OrderRequest) (*types.SwapOrder, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResult, nil
}

func (s *stubOrderService) SubmitSecret(ctx context.Context, orderHash, secret string) error {
	s.submitSecretCalls++
	s.lastOrderHash = orderHash
	s.lastSecret = secret
	return s.submitSecretErr
}

func (s *stubOrderService) GetByHash(orderHash string) (*types.SwapOrder, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getResult, nil
}

func (s *stubOrderService) ListActive() ([]*types.SwapOrder, error) {
	return s.listResult, s.listErr
}

func (s *stubOrderService) ListByMaker(maker string) ([]*types.SwapOrder, error) {
	return s.listResult, s.listErr
}

func TestServer_Health(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status=healthy, got %v", body["status"])
	}
}

func TestServer_CreateOrder_RejectsInvalidPayload(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	body, _ := json.Marshal(map[string]interface{}{}) // missing every required field
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty order request, got %d", rec.Code)
	}
	if svc.createCalls != 0 {
		t.Error("expected validation to reject the request before it reaches the service")
	}
}

func TestServer_CreateOrder_Accepted(t *testing.T) {
	now := uint64(time.Now().Add(time.Hour).Unix())
	svc := &stubOrderService{
		createResult: &types.SwapOrder{OrderHash: "0xorder1", State: types.StateNew},
	}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	payload := types.OrderRequest{
		Order: types.LimitOrder{
			Maker: "0xmaker", MakerAsset: "0xa", TakerAsset: "0xb",
			MakingAmount: big.NewInt(1000), TakingAmount: big.NewInt(2000), Salt: big.NewInt(1),
		},
		Signature:       "0xsig",
		MakerDstAddress: "0xdst",
		SecretHash:      "0xhash",
		Auction: types.AuctionConfig{
			AuctionStart: now - 10, AuctionEnd: now + 100,
			StartRate: big.NewInt(100), EndRate: big.NewInt(50),
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createCalls != 1 {
		t.Errorf("expected the service to be called exactly once, got %d", svc.createCalls)
	}
}

func TestServer_OrderDetails_NotFound(t *testing.T) {
	svc := &stubOrderService{getErr: &relayerr.NotFound{OrderHash: "0xmissing"}}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/0xmissing", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_OrderStatus(t *testing.T) {
	svc := &stubOrderService{
		getResult: &types.SwapOrder{OrderHash: "0xorder1", State: types.StateEthLocked},
	}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/0xorder1/status", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status types.OrderStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.State != types.StateEthLocked {
		t.Errorf("expected state %s, got %s", types.StateEthLocked, status.State)
	}
}

func TestServer_Secret_RequiresBothFields(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	body, _ := json.Marshal(types.SecretRequest{OrderHash: "0xorder1"}) // missing Secret
	req := httptest.NewRequest(http.MethodPost, "/secret", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.submitSecretCalls != 0 {
		t.Error("expected the service not to be called for an incomplete secret request")
	}
}

func TestServer_Secret_Accepted(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	body, _ := json.Marshal(types.SecretRequest{OrderHash: "0xorder1", Secret: "the-secret"})
	req := httptest.NewRequest(http.MethodPost, "/secret", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.submitSecretCalls != 1 {
		t.Errorf("expected the service to be called exactly once, got %d", svc.submitSecretCalls)
	}
	if svc.lastSecret != "the-secret" {
		t.Errorf("expected secret %q to be forwarded, got %q", "the-secret", svc.lastSecret)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	req := httptest.NewRequest(http.MethodDelete, "/health", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	svc := &stubOrderService{}
	srv := NewServer(config.API{Host: "127.0.0.1", Port: 0}, svc)

	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an OPTIONS preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers to be set on the preflight response")
	}
}
