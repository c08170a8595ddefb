package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moneynplay/engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Atomic takes a snapshot of the whole state and swaps it in
// only when fn succeeds, so a failed unit leaves nothing behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	wallets         map[string]*model.Wallet
	transactions    []model.Transaction
	vwallets        map[string]*model.VirtualWallet // by owner
	coinTxs         []model.CoinTransaction
	goals           map[string]*model.SavingsGoal
	options         map[string]*model.InvestmentOption
	priceHistory    map[string][]model.PricePoint
	positions       map[string]*model.InvestmentPosition // owner|option
	progressions    map[string]*model.Progression        // by owner
	missions        map[string]*model.Mission
	missionProgress map[string]*model.MissionProgress // owner|mission
	content         map[string]*model.EducationalContent
	contentProgress map[string]*model.ContentProgress // owner|content
	achievements    map[string]*model.Achievement
	kidAchievements map[string]*model.KidAchievement // owner|achievement
	inventory       map[string]*model.InventoryItem
	listings        map[string]*model.MarketplaceListing
	allowances      map[string]*model.AllowanceConfig
}

func newMemState() *memState {
	return &memState{
		wallets:         make(map[string]*model.Wallet),
		vwallets:        make(map[string]*model.VirtualWallet),
		goals:           make(map[string]*model.SavingsGoal),
		options:         make(map[string]*model.InvestmentOption),
		priceHistory:    make(map[string][]model.PricePoint),
		positions:       make(map[string]*model.InvestmentPosition),
		progressions:    make(map[string]*model.Progression),
		missions:        make(map[string]*model.Mission),
		missionProgress: make(map[string]*model.MissionProgress),
		content:         make(map[string]*model.EducationalContent),
		contentProgress: make(map[string]*model.ContentProgress),
		achievements:    make(map[string]*model.Achievement),
		kidAchievements: make(map[string]*model.KidAchievement),
		inventory:       make(map[string]*model.InventoryItem),
		listings:        make(map[string]*model.MarketplaceListing),
		allowances:      make(map[string]*model.AllowanceConfig),
	}
}

func cloneMap[V any](src map[string]*V) map[string]*V {
	dst := make(map[string]*V, len(src))
	for k, v := range src {
		c := *v
		dst[k] = &c
	}
	return dst
}

func (st *memState) clone() *memState {
	c := &memState{
		wallets:         cloneMap(st.wallets),
		transactions:    append([]model.Transaction(nil), st.transactions...),
		vwallets:        cloneMap(st.vwallets),
		coinTxs:         append([]model.CoinTransaction(nil), st.coinTxs...),
		goals:           cloneMap(st.goals),
		options:         cloneMap(st.options),
		priceHistory:    make(map[string][]model.PricePoint, len(st.priceHistory)),
		positions:       cloneMap(st.positions),
		progressions:    cloneMap(st.progressions),
		missions:        cloneMap(st.missions),
		missionProgress: cloneMap(st.missionProgress),
		content:         cloneMap(st.content),
		contentProgress: cloneMap(st.contentProgress),
		achievements:    cloneMap(st.achievements),
		kidAchievements: cloneMap(st.kidAchievements),
		inventory:       cloneMap(st.inventory),
		listings:        cloneMap(st.listings),
		allowances:      cloneMap(st.allowances),
	}
	for k, v := range st.priceHistory {
		c.priceHistory[k] = append([]model.PricePoint(nil), v...)
	}
	return c
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func pairKey(a, b string) string { return a + "|" + b }

// Atomic clones the state, runs fn against a store backed by the clone, and
// swaps the clone in only if fn succeeds. The parent lock is held for the
// duration, which also serializes units against each other.
func (s *MemoryStore) Atomic(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// --- Money wallets ---

func (s *MemoryStore) CreateWallet(_ context.Context, w *model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	c := *w
	s.state.wallets[w.ID] = &c
	return nil
}

func (s *MemoryStore) GetWallet(_ context.Context, id string) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.state.wallets[id]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", id, model.ErrNotFound)
	}
	c := *w
	return &c, nil
}

func (s *MemoryStore) GetWalletByOwner(_ context.Context, ownerID string) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.state.wallets {
		if w.OwnerID == ownerID {
			c := *w
			return &c, nil
		}
	}
	return nil, fmt.Errorf("wallet for owner %s: %w", ownerID, model.ErrNotFound)
}

func (s *MemoryStore) SetWalletBalance(_ context.Context, id string, balanceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.state.wallets[id]
	if !ok {
		return fmt.Errorf("wallet %s: %w", id, model.ErrNotFound)
	}
	w.BalanceCents = balanceCents
	return nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.transactions = append(s.state.transactions, *t)
	return nil
}

func (s *MemoryStore) GetTransactionsByWallet(_ context.Context, walletID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, t := range s.state.transactions {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- Virtual wallets ---

func (s *MemoryStore) CreateVirtualWallet(_ context.Context, w *model.VirtualWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.vwallets[w.OwnerID]; ok {
		return fmt.Errorf("virtual wallet for %s already exists", w.OwnerID)
	}
	c := *w
	s.state.vwallets[w.OwnerID] = &c
	return nil
}

func (s *MemoryStore) GetVirtualWallet(_ context.Context, ownerID string) (*model.VirtualWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.state.vwallets[ownerID]
	if !ok {
		return nil, fmt.Errorf("virtual wallet for %s: %w", ownerID, model.ErrNotFound)
	}
	c := *w
	return &c, nil
}

func (s *MemoryStore) UpdateVirtualWallet(_ context.Context, w *model.VirtualWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.vwallets[w.OwnerID]; !ok {
		return fmt.Errorf("virtual wallet for %s: %w", w.OwnerID, model.ErrNotFound)
	}
	c := *w
	s.state.vwallets[w.OwnerID] = &c
	return nil
}

func (s *MemoryStore) InsertCoinTransaction(_ context.Context, t *model.CoinTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.coinTxs = append(s.state.coinTxs, *t)
	return nil
}

func (s *MemoryStore) GetCoinTransactionsByOwner(_ context.Context, ownerID string) ([]model.CoinTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.CoinTransaction
	for _, t := range s.state.coinTxs {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- Savings goals ---

func (s *MemoryStore) CreateGoal(_ context.Context, g *model.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *g
	s.state.goals[g.ID] = &c
	return nil
}

func (s *MemoryStore) GetGoal(_ context.Context, id string) (*model.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.state.goals[id]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	c := *g
	return &c, nil
}

func (s *MemoryStore) ListGoalsByOwner(_ context.Context, ownerID string) ([]model.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.SavingsGoal
	for _, g := range s.state.goals {
		if g.OwnerID == ownerID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateGoal(_ context.Context, g *model.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.goals[g.ID]; !ok {
		return fmt.Errorf("goal %s: %w", g.ID, model.ErrNotFound)
	}
	c := *g
	s.state.goals[g.ID] = &c
	return nil
}

func (s *MemoryStore) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.goals[id]; !ok {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	delete(s.state.goals, id)
	return nil
}

func (s *MemoryStore) CountCompletedGoals(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, g := range s.state.goals {
		if g.OwnerID == ownerID && g.IsCompleted {
			n++
		}
	}
	return n, nil
}

// --- Investment options ---

func (s *MemoryStore) CreateOption(_ context.Context, o *model.InvestmentOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.options {
		if existing.Symbol == o.Symbol {
			return fmt.Errorf("option with symbol %s already exists", o.Symbol)
		}
	}
	c := *o
	s.state.options[o.ID] = &c
	s.state.priceHistory[o.ID] = append(s.state.priceHistory[o.ID], model.PricePoint{
		OptionID:   o.ID,
		PriceCents: o.CurrentPriceCents,
		Timestamp:  o.CreatedAt,
	})
	return nil
}

func (s *MemoryStore) GetOption(_ context.Context, id string) (*model.InvestmentOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.options[id]
	if !ok {
		return nil, fmt.Errorf("option %s: %w", id, model.ErrNotFound)
	}
	c := *o
	return &c, nil
}

func (s *MemoryStore) ListOptions(_ context.Context) ([]model.InvestmentOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.InvestmentOption, 0, len(s.state.options))
	for _, o := range s.state.options {
		out = append(out, *o)
	}
	return out, nil
}

func (s *MemoryStore) SetOptionPrice(_ context.Context, id string, priceCents int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.options[id]
	if !ok {
		return fmt.Errorf("option %s: %w", id, model.ErrNotFound)
	}
	o.CurrentPriceCents = priceCents
	s.state.priceHistory[id] = append(s.state.priceHistory[id], model.PricePoint{
		OptionID:   id,
		PriceCents: priceCents,
		Timestamp:  at,
	})
	return nil
}

func (s *MemoryStore) SetOptionActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.options[id]
	if !ok {
		return fmt.Errorf("option %s: %w", id, model.ErrNotFound)
	}
	o.IsActive = active
	return nil
}

func (s *MemoryStore) GetPriceHistory(_ context.Context, optionID string, limit int) ([]model.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.state.priceHistory[optionID]
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	return append([]model.PricePoint(nil), hist...), nil
}

// --- Investment positions ---

func (s *MemoryStore) GetPosition(_ context.Context, ownerID, optionID string) (*model.InvestmentPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.positions[pairKey(ownerID, optionID)]
	if !ok {
		return nil, fmt.Errorf("position %s/%s: %w", ownerID, optionID, model.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) ListPositionsByOwner(_ context.Context, ownerID string) ([]model.InvestmentPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.InvestmentPosition
	for _, p := range s.state.positions {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, p *model.InvestmentPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.state.positions[pairKey(p.OwnerID, p.OptionID)] = &c
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, ownerID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state.positions, pairKey(ownerID, optionID))
	return nil
}

// --- Progression ---

func (s *MemoryStore) GetProgression(_ context.Context, ownerID string) (*model.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.progressions[ownerID]
	if !ok {
		return nil, fmt.Errorf("progression for %s: %w", ownerID, model.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) UpsertProgression(_ context.Context, p *model.Progression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.state.progressions[p.OwnerID] = &c
	return nil
}

// --- Missions & learning content ---

func (s *MemoryStore) CreateMission(_ context.Context, m *model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *m
	s.state.missions[m.ID] = &c
	return nil
}

func (s *MemoryStore) GetMission(_ context.Context, id string) (*model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.state.missions[id]
	if !ok {
		return nil, fmt.Errorf("mission %s: %w", id, model.ErrNotFound)
	}
	c := *m
	return &c, nil
}

func (s *MemoryStore) ListMissions(_ context.Context) ([]model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Mission, 0, len(s.state.missions))
	for _, m := range s.state.missions {
		out = append(out, *m)
	}
	return out, nil
}

func (s *MemoryStore) GetMissionProgress(_ context.Context, ownerID, missionID string) (*model.MissionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.missionProgress[pairKey(ownerID, missionID)]
	if !ok {
		return nil, fmt.Errorf("mission progress %s/%s: %w", ownerID, missionID, model.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) UpsertMissionProgress(_ context.Context, p *model.MissionProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.state.missionProgress[pairKey(p.OwnerID, p.MissionID)] = &c
	return nil
}

func (s *MemoryStore) ListMissionProgressByMission(_ context.Context, missionID string) ([]model.MissionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.MissionProgress
	for _, p := range s.state.missionProgress {
		if p.MissionID == missionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountCompletedMissions(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.state.missionProgress {
		if p.OwnerID == ownerID && p.Status == model.MissionCompleted {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateContent(_ context.Context, c *model.EducationalContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cc := *c
	s.state.content[c.ID] = &cc
	return nil
}

func (s *MemoryStore) GetContent(_ context.Context, id string) (*model.EducationalContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.content[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, model.ErrNotFound)
	}
	cc := *c
	return &cc, nil
}

func (s *MemoryStore) GetContentProgress(_ context.Context, ownerID, contentID string) (*model.ContentProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.contentProgress[pairKey(ownerID, contentID)]
	if !ok {
		return nil, fmt.Errorf("content progress %s/%s: %w", ownerID, contentID, model.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) UpsertContentProgress(_ context.Context, p *model.ContentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.state.contentProgress[pairKey(p.OwnerID, p.ContentID)] = &c
	return nil
}

// --- Achievements ---

func (s *MemoryStore) CreateAchievement(_ context.Context, a *model.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.state.achievements[a.ID] = &c
	return nil
}

func (s *MemoryStore) ListAchievements(_ context.Context) ([]model.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Achievement, 0, len(s.state.achievements))
	for _, a := range s.state.achievements {
		out = append(out, *a)
	}
	return out, nil
}

func (s *MemoryStore) GetKidAchievement(_ context.Context, ownerID, achievementID string) (*model.KidAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.state.kidAchievements[pairKey(ownerID, achievementID)]
	if !ok {
		return nil, fmt.Errorf("kid achievement %s/%s: %w", ownerID, achievementID, model.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (s *MemoryStore) InsertKidAchievement(_ context.Context, a *model.KidAchievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(a.OwnerID, a.AchievementID)
	if _, ok := s.state.kidAchievements[key]; ok {
		return fmt.Errorf("achievement %s already unlocked for %s", a.AchievementID, a.OwnerID)
	}
	c := *a
	s.state.kidAchievements[key] = &c
	return nil
}

// --- Inventory & marketplace listings ---

func (s *MemoryStore) InsertInventoryItem(_ context.Context, it *model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *it
	s.state.inventory[it.ID] = &c
	return nil
}

func (s *MemoryStore) GetInventoryItem(_ context.Context, id string) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.state.inventory[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", id, model.ErrNotFound)
	}
	c := *it
	return &c, nil
}

func (s *MemoryStore) ListInventoryByOwner(_ context.Context, ownerID string) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.InventoryItem
	for _, it := range s.state.inventory {
		if it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetInventoryOwner(_ context.Context, id, ownerID, acquiredFrom string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.state.inventory[id]
	if !ok {
		return fmt.Errorf("inventory item %s: %w", id, model.ErrNotFound)
	}
	it.OwnerID = ownerID
	it.AcquiredFrom = acquiredFrom
	it.AcquiredAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CreateListing(_ context.Context, l *model.MarketplaceListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *l
	s.state.listings[l.ID] = &c
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, id string) (*model.MarketplaceListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, model.ErrNotFound)
	}
	c := *l
	return &c, nil
}

func (s *MemoryStore) GetActiveListingByInventory(_ context.Context, inventoryID string) (*model.MarketplaceListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.state.listings {
		if l.InventoryID == inventoryID && l.Status == model.ListingActive {
			c := *l
			return &c, nil
		}
	}
	return nil, fmt.Errorf("active listing for inventory %s: %w", inventoryID, model.ErrNotFound)
}

func (s *MemoryStore) ListActiveListings(_ context.Context) ([]model.MarketplaceListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.MarketplaceListing
	for _, l := range s.state.listings {
		if l.Status == model.ListingActive {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateListing(_ context.Context, l *model.MarketplaceListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.listings[l.ID]; !ok {
		return fmt.Errorf("listing %s: %w", l.ID, model.ErrNotFound)
	}
	c := *l
	s.state.listings[l.ID] = &c
	return nil
}

// --- Allowances ---

func (s *MemoryStore) CreateAllowance(_ context.Context, a *model.AllowanceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.state.allowances[a.ID] = &c
	return nil
}

func (s *MemoryStore) GetAllowance(_ context.Context, id string) (*model.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.state.allowances[id]
	if !ok {
		return nil, fmt.Errorf("allowance %s: %w", id, model.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (s *MemoryStore) GetAllowanceByOwner(_ context.Context, ownerID string) (*model.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.state.allowances {
		if a.OwnerID == ownerID {
			c := *a
			return &c, nil
		}
	}
	return nil, fmt.Errorf("allowance for owner %s: %w", ownerID, model.ErrNotFound)
}

func (s *MemoryStore) UpdateAllowance(_ context.Context, a *model.AllowanceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.allowances[a.ID]; !ok {
		return fmt.Errorf("allowance %s: %w", a.ID, model.ErrNotFound)
	}
	c := *a
	s.state.allowances[a.ID] = &c
	return nil
}

func (s *MemoryStore) ListDueAllowances(_ context.Context, now time.Time) ([]model.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.AllowanceConfig
	for _, a := range s.state.allowances {
		if a.IsActive && !a.NextPaymentAt.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}
