package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/moneynplay/engine/internal/model"
)

// --- Wallet ---

type createWalletRequest struct {
	Currency string `json:"currency"`
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	var req createWalletRequest
	json.NewDecoder(r.Body).Decode(&req)

	wallet, err := s.Money.CreateWallet(r.Context(), ownerID, req.Currency)
	if err != nil {
		respondErr(w, err)
		return
	}
	if _, err := s.Coins.CreateVirtualWallet(r.Context(), ownerID); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

type amountRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	wallet, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.Money.Deposit(r.Context(), wallet.ID, req.AmountCents, req.Description); err != nil {
		respondErr(w, err)
		return
	}
	updated, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	wallet, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.Money.Debit(r.Context(), wallet.ID, req.AmountCents, req.Description); err != nil {
		respondErr(w, err)
		return
	}
	updated, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type transferRequest struct {
	ToOwnerID   string `json:"to_owner_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	from, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	to, err := s.Money.Wallet(r.Context(), req.ToOwnerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.Money.Transfer(r.Context(), from.ID, to.ID, req.AmountCents); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (s *Server) walletTransactions(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.Money.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	txs, err := s.Money.History(r.Context(), wallet.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// --- Coins ---

func (s *Server) getCoins(w http.ResponseWriter, r *http.Request) {
	vw, err := s.Coins.Wallet(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vw)
}

type coinRequest struct {
	Amount    int64  `json:"amount"`
	Type      string `json:"type"`
	SourceRef string `json:"source_ref"`
}

func (s *Server) earnCoins(w http.ResponseWriter, r *http.Request) {
	var req coinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ownerID := chi.URLParam(r, "ownerID")
	if err := s.Coins.Earn(r.Context(), ownerID, req.Amount, req.Type, req.SourceRef); err != nil {
		respondErr(w, err)
		return
	}
	vw, err := s.Coins.Wallet(r.Context(), ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vw)
}

func (s *Server) spendCoins(w http.ResponseWriter, r *http.Request) {
	var req coinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ownerID := chi.URLParam(r, "ownerID")
	if req.Type == "" {
		req.Type = model.CoinTxPurchase
	}
	if err := s.Coins.Spend(r.Context(), ownerID, req.Amount, req.Type, req.SourceRef); err != nil {
		respondErr(w, err)
		return
	}
	vw, err := s.Coins.Wallet(r.Context(), ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vw)
}

func (s *Server) coinTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.Coins.History(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// --- Goals ---

type createGoalRequest struct {
	Name              string `json:"name"`
	TargetAmountCents int64  `json:"target_amount_cents"`
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, err := s.Goals.Create(r.Context(), chi.URLParam(r, "ownerID"), req.Name, req.TargetAmountCents)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.Goals.List(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.Goals.Get(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "goalID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) addGoalFunds(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, err := s.Goals.AddFunds(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "goalID"), req.AmountCents)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) withdrawGoalFunds(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, err := s.Goals.Withdraw(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "goalID"), req.AmountCents)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.Goals.Delete(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "goalID")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Investments ---

type createOptionRequest struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	RiskLevel  string `json:"risk_level"`
}

func (s *Server) createOption(w http.ResponseWriter, r *http.Request) {
	var req createOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	o, err := s.Invest.CreateOption(r.Context(), req.Symbol, req.Name, req.PriceCents, req.RiskLevel)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) listOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.Invest.ListOptions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) setOptionActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Invest.SetOptionActive(r.Context(), chi.URLParam(r, "optionID"), req.Active); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.Invest.PriceHistory(r.Context(), chi.URLParam(r, "optionID"), 0)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type buyRequest struct {
	OptionID    string `json:"option_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.Invest.Buy(r.Context(), chi.URLParam(r, "ownerID"), req.OptionID, req.AmountCents)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type sellRequest struct {
	OptionID string          `json:"option_id"`
	Shares   decimal.Decimal `json:"shares"`
}

func (s *Server) sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := s.Invest.Sell(r.Context(), chi.URLParam(r, "ownerID"), req.OptionID, req.Shares)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Invest.Portfolio(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- Progression ---

func (s *Server) getProgression(w http.ResponseWriter, r *http.Request) {
	p, err := s.Progress.Get(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type activityRequest struct {
	Date string `json:"date"` // YYYY-MM-DD; empty means today
}

func (s *Server) recordActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	json.NewDecoder(r.Body).Decode(&req)

	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}
	p, err := s.Progress.RecordActivity(r.Context(), chi.URLParam(r, "ownerID"), day)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Missions, content, achievements ---

type createMissionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CoinReward  int64      `json:"coin_reward"`
	XPReward    int64      `json:"xp_reward"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) createMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	m, err := s.Missions.CreateMission(r.Context(), req.Title, req.Description, req.CoinReward, req.XPReward, req.ExpiresAt)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) listMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := s.Missions.ListMissions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

func (s *Server) missionProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.Missions.Progress(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "missionID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) startMission(w http.ResponseWriter, r *http.Request) {
	p, err := s.Missions.Start(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "missionID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type missionProgressRequest struct {
	Progress int `json:"progress"`
}

func (s *Server) updateMissionProgress(w http.ResponseWriter, r *http.Request) {
	var req missionProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.Missions.UpdateProgress(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "missionID"), req.Progress)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) completeMission(w http.ResponseWriter, r *http.Request) {
	p, err := s.Missions.Complete(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "missionID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createContentRequest struct {
	Title      string `json:"title"`
	CoinReward int64  `json:"coin_reward"`
	XPReward   int64  `json:"xp_reward"`
}

func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	var req createContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, err := s.Missions.CreateContent(r.Context(), req.Title, req.CoinReward, req.XPReward)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) completeContent(w http.ResponseWriter, r *http.Request) {
	p, err := s.Missions.CompleteContent(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "contentID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createAchievementRequest struct {
	Title            string `json:"title"`
	RequirementType  string `json:"requirement_type"`
	RequirementValue int64  `json:"requirement_value"`
	CoinReward       int64  `json:"coin_reward"`
	XPReward         int64  `json:"xp_reward"`
}

func (s *Server) createAchievement(w http.ResponseWriter, r *http.Request) {
	var req createAchievementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := s.Missions.CreateAchievement(r.Context(), req.Title, req.RequirementType, req.RequirementValue, req.CoinReward, req.XPReward)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// --- Marketplace ---

type grantItemRequest struct {
	ItemID     string `json:"item_id"`
	PriceCoins int64  `json:"price_coins"`
}

func (s *Server) grantItem(w http.ResponseWriter, r *http.Request) {
	var req grantItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	it, err := s.Marketplace.GrantItem(r.Context(), chi.URLParam(r, "ownerID"), req.ItemID, req.PriceCoins)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.Marketplace.Inventory(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type createListingRequest struct {
	InventoryID string `json:"inventory_id"`
	CoinPrice   int64  `json:"coin_price"`
	Description string `json:"description"`
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l, err := s.Marketplace.List(r.Context(), chi.URLParam(r, "ownerID"), req.InventoryID, req.CoinPrice, req.Description)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) cancelListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.Marketplace.Cancel(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "listingID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) purchaseListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.Marketplace.Purchase(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "listingID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) browseListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.Marketplace.Browse(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// --- Allowances ---

type allowanceRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Frequency   string `json:"frequency"`
}

func (s *Server) configureAllowance(w http.ResponseWriter, r *http.Request) {
	var req allowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := s.Allowances.Configure(r.Context(), chi.URLParam(r, "ownerID"), req.AmountCents, req.Frequency)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getAllowance(w http.ResponseWriter, r *http.Request) {
	a, err := s.Allowances.Get(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) pauseAllowance(w http.ResponseWriter, r *http.Request) {
	a, err := s.Allowances.SetActive(r.Context(), chi.URLParam(r, "allowanceID"), false)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) resumeAllowance(w http.ResponseWriter, r *http.Request) {
	a, err := s.Allowances.SetActive(r.Context(), chi.URLParam(r, "allowanceID"), true)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
