package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"riskengine/internal/engine"
	"riskengine/internal/models"
)

// ============ PositionHandler Tests ============

func openTestPosition(t *testing.T, eng *engine.Engine) models.Position {
	t.Helper()

	result := eng.ProposeTrade(&models.TradeProposal{
		Symbol:     "BTCUSDT",
		Venue:      "binance",
		Side:       "long",
		EntryPrice: 45000,
		Quantity:   0.02,
		StopLoss:   43500,
		TakeProfit: 47250,
	})
	if !result.Accepted {
		t.Fatalf("proposal rejected: %s", result.Reason)
	}
	return *result.Position
}

func TestPositionHandler_GetActivePositions(t *testing.T) {
	t.Run("returns empty list without positions", func(t *testing.T) {
		handler := NewPositionHandler(newTestEngine())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()

		handler.GetActivePositions(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var positions []models.Position
		if err := json.NewDecoder(w.Body).Decode(&positions); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("expected 0 positions, got %d", len(positions))
		}
	})

	t.Run("returns open positions", func(t *testing.T) {
		eng := newTestEngine()
		opened := openTestPosition(t, eng)
		handler := NewPositionHandler(eng)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()

		handler.GetActivePositions(w, req)

		var positions []models.Position
		if err := json.NewDecoder(w.Body).Decode(&positions); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(positions) != 1 || positions[0].ID != opened.ID {
			t.Errorf("unexpected positions: %+v", positions)
		}
	})
}

func TestPositionHandler_GetClosedPositions(t *testing.T) {
	eng := newTestEngine()
	for i := 0; i < 3; i++ {
		opened := openTestPosition(t, eng)
		if _, err := eng.ClosePosition(opened.ID, 46000); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}
	handler := NewPositionHandler(eng)

	t.Run("returns full history without limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/closed", nil)
		w := httptest.NewRecorder()

		handler.GetClosedPositions(w, req)

		var positions []models.Position
		if err := json.NewDecoder(w.Body).Decode(&positions); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(positions) != 3 {
			t.Errorf("expected 3 positions, got %d", len(positions))
		}
	})

	t.Run("limit keeps most recent closes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/closed?limit=2", nil)
		w := httptest.NewRecorder()

		handler.GetClosedPositions(w, req)

		var positions []models.Position
		if err := json.NewDecoder(w.Body).Decode(&positions); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(positions) != 2 {
			t.Errorf("expected 2 positions, got %d", len(positions))
		}
	})

	t.Run("returns 400 on bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/closed?limit=many", nil)
		w := httptest.NewRecorder()

		handler.GetClosedPositions(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestPositionHandler_GetPosition(t *testing.T) {
	eng := newTestEngine()
	opened := openTestPosition(t, eng)
	handler := NewPositionHandler(eng)

	t.Run("returns position by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/"+opened.ID, nil)
		req = mux.SetURLVars(req, map[string]string{"id": opened.ID})
		w := httptest.NewRecorder()

		handler.GetPosition(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var p models.Position
		if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if p.ID != opened.ID {
			t.Errorf("expected position %s, got %s", opened.ID, p.ID)
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/missing", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.GetPosition(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestPositionHandler_ClosePosition(t *testing.T) {
	t.Run("closes active position", func(t *testing.T) {
		eng := newTestEngine()
		opened := openTestPosition(t, eng)
		handler := NewPositionHandler(eng)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/"+opened.ID+"/close",
			strings.NewReader(`{"price": 46000}`))
		req = mux.SetURLVars(req, map[string]string{"id": opened.ID})
		w := httptest.NewRecorder()

		handler.ClosePosition(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var p models.Position
		if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if p.Status != models.PositionStatusClosed {
			t.Errorf("expected closed status, got %q", p.Status)
		}
		if p.ExitReason != models.ExitReasonManual {
			t.Errorf("expected manual exit reason, got %q", p.ExitReason)
		}
	})

	t.Run("returns 400 on non-positive price", func(t *testing.T) {
		eng := newTestEngine()
		opened := openTestPosition(t, eng)
		handler := NewPositionHandler(eng)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/"+opened.ID+"/close",
			strings.NewReader(`{"price": 0}`))
		req = mux.SetURLVars(req, map[string]string{"id": opened.ID})
		w := httptest.NewRecorder()

		handler.ClosePosition(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 404 for unknown position", func(t *testing.T) {
		handler := NewPositionHandler(newTestEngine())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/missing/close",
			strings.NewReader(`{"price": 46000}`))
		req = mux.SetURLVars(req, map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.ClosePosition(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}
