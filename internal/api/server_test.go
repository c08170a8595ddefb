package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moneynplay/engine/internal/allowance"
	"github.com/moneynplay/engine/internal/api"
	"github.com/moneynplay/engine/internal/goal"
	"github.com/moneynplay/engine/internal/invest"
	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/marketplace"
	"github.com/moneynplay/engine/internal/mission"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/progress"
	"github.com/moneynplay/engine/internal/store"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	ms := store.NewMemoryStore()
	locks := ownerlock.New(2 * time.Second)
	srv := &api.Server{
		Money:       ledger.NewMoneyService(ms, locks),
		Coins:       ledger.NewCoinService(ms, locks),
		Goals:       goal.NewService(ms, locks, nil),
		Invest:      invest.NewService(ms, locks, invest.NewRandomWalk(1), 0),
		Progress:    progress.NewService(ms, locks, nil),
		Missions:    mission.NewService(ms, locks, nil),
		Marketplace: marketplace.NewService(ms, locks, nil),
		Allowances:  allowance.NewService(ms, locks, nil),
	}
	return srv.Router()
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWalletLifecycle(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, "POST", "/api/v1/kids/kid1/wallet", map[string]string{"currency": "EUR"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create wallet: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, "POST", "/api/v1/kids/kid1/wallet/deposit", map[string]any{"amount_cents": 1500, "description": "birthday"})
	if w.Code != http.StatusOK {
		t.Fatalf("deposit: %d %s", w.Code, w.Body.String())
	}
	var wallet model.Wallet
	if err := json.Unmarshal(w.Body.Bytes(), &wallet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wallet.BalanceCents != 1500 {
		t.Errorf("balance = %d, want 1500", wallet.BalanceCents)
	}
	if wallet.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", wallet.Currency)
	}

	w = do(t, r, "GET", "/api/v1/kids/kid1/wallet/transactions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transactions: %d", w.Code)
	}
	var txs []model.Transaction
	json.Unmarshal(w.Body.Bytes(), &txs)
	if len(txs) != 1 {
		t.Errorf("transactions = %d, want 1", len(txs))
	}
}

func TestWithdrawInsufficientMapsTo422(t *testing.T) {
	r := newRouter(t)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet", nil)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet/deposit", map[string]any{"amount_cents": 100})

	w := do(t, r, "POST", "/api/v1/kids/kid1/wallet/withdraw", map[string]any{"amount_cents": 500})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("code = %d, want 422: %s", w.Code, w.Body.String())
	}
}

func TestUnknownWalletMapsTo404(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, "GET", "/api/v1/kids/ghost/wallet", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", w.Code)
	}
}

func TestInvalidAmountMapsTo400(t *testing.T) {
	r := newRouter(t)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet", nil)

	w := do(t, r, "POST", "/api/v1/kids/kid1/wallet/deposit", map[string]any{"amount_cents": -5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestGoalFlowOverHTTP(t *testing.T) {
	r := newRouter(t)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet", nil)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet/deposit", map[string]any{"amount_cents": 1000})

	w := do(t, r, "POST", "/api/v1/kids/kid1/goals", map[string]any{"name": "bike", "target_amount_cents": 500})
	if w.Code != http.StatusCreated {
		t.Fatalf("create goal: %d %s", w.Code, w.Body.String())
	}
	var g model.SavingsGoal
	json.Unmarshal(w.Body.Bytes(), &g)

	w = do(t, r, "POST", "/api/v1/kids/kid1/goals/"+g.ID+"/funds", map[string]any{"amount_cents": 500})
	if w.Code != http.StatusOK {
		t.Fatalf("add funds: %d %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &g)
	if !g.IsCompleted {
		t.Error("goal not completed at target")
	}

	// Another kid touching the goal is forbidden.
	w = do(t, r, "POST", "/api/v1/kids/kid2/goals/"+g.ID+"/funds", map[string]any{"amount_cents": 100})
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign add funds code = %d, want 403", w.Code)
	}
}

func TestBuyInactiveOptionMapsTo409(t *testing.T) {
	r := newRouter(t)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet", nil)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet/deposit", map[string]any{"amount_cents": 1000})

	w := do(t, r, "POST", "/api/v1/options", map[string]any{"symbol": "MOON", "name": "Moon Fund", "price_cents": 100, "risk_level": "high"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create option: %d %s", w.Code, w.Body.String())
	}
	var o model.InvestmentOption
	json.Unmarshal(w.Body.Bytes(), &o)

	do(t, r, "POST", "/api/v1/options/"+o.ID+"/active", map[string]any{"active": false})

	w = do(t, r, "POST", "/api/v1/kids/kid1/investments/buy", map[string]any{"option_id": o.ID, "amount_cents": 500})
	if w.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r := newRouter(t)
	if w := do(t, r, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
	if w := do(t, r, "GET", "/metrics", nil); w.Code != http.StatusOK {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestMissionCompleteOverHTTP(t *testing.T) {
	r := newRouter(t)
	do(t, r, "POST", "/api/v1/kids/kid1/wallet", nil)

	w := do(t, r, "POST", "/api/v1/missions", map[string]any{"title": "Read a lesson", "coin_reward": 10, "xp_reward": 120})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mission: %d %s", w.Code, w.Body.String())
	}
	var m model.Mission
	json.Unmarshal(w.Body.Bytes(), &m)

	if w := do(t, r, "POST", "/api/v1/kids/kid1/missions/"+m.ID+"/start", nil); w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, "POST", "/api/v1/kids/kid1/missions/"+m.ID+"/complete", nil); w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, "GET", "/api/v1/kids/kid1/progression", nil)
	var p model.Progression
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.XP != 120 || p.Level != 2 {
		t.Errorf("progression = %+v, want xp 120 level 2", p)
	}
}
