// Package store defines the persistence interface for the engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache for investment options), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/moneynplay/engine/internal/model"
)

// Store is the persistence interface. Every multi-record mutation in the
// engine runs inside Atomic so that partial writes are never observable.
type Store interface {
	// Atomic runs fn against a transactional view of the store. If fn
	// returns an error, every write made through that view is rolled back.
	// Nested calls join the enclosing unit.
	Atomic(ctx context.Context, fn func(Store) error) error

	// --- Money wallets & immutable transaction log ---

	CreateWallet(ctx context.Context, w *model.Wallet) error
	GetWallet(ctx context.Context, id string) (*model.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID string) (*model.Wallet, error)
	SetWalletBalance(ctx context.Context, id string, balanceCents int64) error
	InsertTransaction(ctx context.Context, t *model.Transaction) error
	GetTransactionsByWallet(ctx context.Context, walletID string) ([]model.Transaction, error)

	// --- Virtual wallets & coin transaction log ---

	CreateVirtualWallet(ctx context.Context, w *model.VirtualWallet) error
	GetVirtualWallet(ctx context.Context, ownerID string) (*model.VirtualWallet, error)
	UpdateVirtualWallet(ctx context.Context, w *model.VirtualWallet) error
	InsertCoinTransaction(ctx context.Context, t *model.CoinTransaction) error
	GetCoinTransactionsByOwner(ctx context.Context, ownerID string) ([]model.CoinTransaction, error)

	// --- Savings goals ---

	CreateGoal(ctx context.Context, g *model.SavingsGoal) error
	GetGoal(ctx context.Context, id string) (*model.SavingsGoal, error)
	ListGoalsByOwner(ctx context.Context, ownerID string) ([]model.SavingsGoal, error)
	UpdateGoal(ctx context.Context, g *model.SavingsGoal) error
	DeleteGoal(ctx context.Context, id string) error
	CountCompletedGoals(ctx context.Context, ownerID string) (int64, error)

	// --- Investment options & append-only price history ---

	CreateOption(ctx context.Context, o *model.InvestmentOption) error
	GetOption(ctx context.Context, id string) (*model.InvestmentOption, error)
	ListOptions(ctx context.Context) ([]model.InvestmentOption, error)
	// SetOptionPrice updates the current price and appends a history point.
	SetOptionPrice(ctx context.Context, id string, priceCents int64, at time.Time) error
	SetOptionActive(ctx context.Context, id string, active bool) error
	GetPriceHistory(ctx context.Context, optionID string, limit int) ([]model.PricePoint, error)

	// --- Investment positions ---

	GetPosition(ctx context.Context, ownerID, optionID string) (*model.InvestmentPosition, error)
	ListPositionsByOwner(ctx context.Context, ownerID string) ([]model.InvestmentPosition, error)
	UpsertPosition(ctx context.Context, p *model.InvestmentPosition) error
	DeletePosition(ctx context.Context, ownerID, optionID string) error

	// --- Progression ---

	GetProgression(ctx context.Context, ownerID string) (*model.Progression, error)
	UpsertProgression(ctx context.Context, p *model.Progression) error

	// --- Missions & learning content ---

	CreateMission(ctx context.Context, m *model.Mission) error
	GetMission(ctx context.Context, id string) (*model.Mission, error)
	ListMissions(ctx context.Context) ([]model.Mission, error)
	GetMissionProgress(ctx context.Context, ownerID, missionID string) (*model.MissionProgress, error)
	UpsertMissionProgress(ctx context.Context, p *model.MissionProgress) error
	ListMissionProgressByMission(ctx context.Context, missionID string) ([]model.MissionProgress, error)
	CountCompletedMissions(ctx context.Context, ownerID string) (int64, error)

	CreateContent(ctx context.Context, c *model.EducationalContent) error
	GetContent(ctx context.Context, id string) (*model.EducationalContent, error)
	GetContentProgress(ctx context.Context, ownerID, contentID string) (*model.ContentProgress, error)
	UpsertContentProgress(ctx context.Context, p *model.ContentProgress) error

	// --- Achievements ---

	CreateAchievement(ctx context.Context, a *model.Achievement) error
	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	GetKidAchievement(ctx context.Context, ownerID, achievementID string) (*model.KidAchievement, error)
	InsertKidAchievement(ctx context.Context, a *model.KidAchievement) error

	// --- Inventory & marketplace listings ---

	InsertInventoryItem(ctx context.Context, it *model.InventoryItem) error
	GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error)
	ListInventoryByOwner(ctx context.Context, ownerID string) ([]model.InventoryItem, error)
	// SetInventoryOwner transfers an item to a new owner and records how it
	// was acquired.
	SetInventoryOwner(ctx context.Context, id, ownerID, acquiredFrom string) error

	CreateListing(ctx context.Context, l *model.MarketplaceListing) error
	GetListing(ctx context.Context, id string) (*model.MarketplaceListing, error)
	GetActiveListingByInventory(ctx context.Context, inventoryID string) (*model.MarketplaceListing, error)
	ListActiveListings(ctx context.Context) ([]model.MarketplaceListing, error)
	UpdateListing(ctx context.Context, l *model.MarketplaceListing) error

	// --- Allowances ---

	CreateAllowance(ctx context.Context, a *model.AllowanceConfig) error
	GetAllowance(ctx context.Context, id string) (*model.AllowanceConfig, error)
	GetAllowanceByOwner(ctx context.Context, ownerID string) (*model.AllowanceConfig, error)
	UpdateAllowance(ctx context.Context, a *model.AllowanceConfig) error
	ListDueAllowances(ctx context.Context, now time.Time) ([]model.AllowanceConfig, error)
}
