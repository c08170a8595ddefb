// Package api exposes every engine operation over HTTP. Handlers are thin:
// decode, call the service, map the sentinel error to a status code.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moneynplay/engine/internal/allowance"
	"github.com/moneynplay/engine/internal/goal"
	"github.com/moneynplay/engine/internal/invest"
	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/marketplace"
	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/mission"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/progress"
)

// Server bundles the engine services behind one router.
type Server struct {
	Money       *ledger.MoneyService
	Coins       *ledger.CoinService
	Goals       *goal.Service
	Invest      *invest.Service
	Progress    *progress.Service
	Missions    *mission.Service
	Marketplace *marketplace.Service
	Allowances  *allowance.Service
	Hub         *notify.Hub
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"moneynplay-engine"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.Hub != nil {
			r.Get("/ws", s.Hub.HandleWS)
		}

		r.Route("/kids/{ownerID}", func(r chi.Router) {
			r.Post("/wallet", s.createWallet)
			r.Get("/wallet", s.getWallet)
			r.Post("/wallet/deposit", s.deposit)
			r.Post("/wallet/withdraw", s.withdraw)
			r.Post("/wallet/transfer", s.transfer)
			r.Get("/wallet/transactions", s.walletTransactions)

			r.Get("/coins", s.getCoins)
			r.Post("/coins/earn", s.earnCoins)
			r.Post("/coins/spend", s.spendCoins)
			r.Get("/coins/transactions", s.coinTransactions)

			r.Post("/goals", s.createGoal)
			r.Get("/goals", s.listGoals)
			r.Get("/goals/{goalID}", s.getGoal)
			r.Post("/goals/{goalID}/funds", s.addGoalFunds)
			r.Post("/goals/{goalID}/withdraw", s.withdrawGoalFunds)
			r.Delete("/goals/{goalID}", s.deleteGoal)

			r.Post("/investments/buy", s.buy)
			r.Post("/investments/sell", s.sell)
			r.Get("/portfolio", s.portfolio)

			r.Get("/progression", s.getProgression)
			r.Post("/activity", s.recordActivity)

			r.Get("/missions/{missionID}", s.missionProgress)
			r.Post("/missions/{missionID}/start", s.startMission)
			r.Post("/missions/{missionID}/progress", s.updateMissionProgress)
			r.Post("/missions/{missionID}/complete", s.completeMission)
			r.Post("/content/{contentID}/complete", s.completeContent)

			r.Post("/items", s.grantItem)
			r.Get("/items", s.inventory)
			r.Post("/listings", s.createListing)
			r.Post("/listings/{listingID}/cancel", s.cancelListing)
			r.Post("/listings/{listingID}/purchase", s.purchaseListing)

			r.Post("/allowance", s.configureAllowance)
			r.Get("/allowance", s.getAllowance)
		})

		r.Get("/options", s.listOptions)
		r.Post("/options", s.createOption)
		r.Get("/options/{optionID}/history", s.priceHistory)
		r.Post("/options/{optionID}/active", s.setOptionActive)

		r.Get("/missions", s.listMissions)
		r.Post("/missions", s.createMission)
		r.Post("/content", s.createContent)
		r.Post("/achievements", s.createAchievement)

		r.Get("/listings", s.browseListings)

		r.Post("/allowances/{allowanceID}/pause", s.pauseAllowance)
		r.Post("/allowances/{allowanceID}/resume", s.resumeAllowance)
	})

	return r
}

// statusFromErr maps the sentinel error taxonomy onto HTTP statuses.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidSymbol),
		errors.Is(err, model.ErrInvalidRiskLevel):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotOwner), errors.Is(err, model.ErrSelfPurchase):
		return http.StatusForbidden
	case errors.Is(err, model.ErrOptionInactive),
		errors.Is(err, model.ErrItemAlreadyListed),
		errors.Is(err, model.ErrListingNotActive),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrInsufficientCoins),
		errors.Is(err, model.ErrInsufficientGoalFunds),
		errors.Is(err, model.ErrInsufficientShares),
		errors.Is(err, model.ErrInvestedCapExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusFromErr(err))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
