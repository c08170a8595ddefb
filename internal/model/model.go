// Package model defines the core domain types shared across the engine.
// All real-money amounts are integer cents; fractional quantities (shares,
// cost basis) use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a child's real-money balance. The balance is derived state:
// it must equal the signed sum of all transactions for the wallet.
type Wallet struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	BalanceCents int64     `json:"balance_cents" db:"balance_cents"`
	Currency     string    `json:"currency" db:"currency"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Transaction types recorded in the money ledger.
const (
	TxDeposit        = "deposit"
	TxWithdrawal     = "withdrawal"
	TxAllowance      = "allowance"
	TxTransfer       = "transfer"
	TxGoalFund       = "goal_fund"
	TxGoalWithdraw   = "goal_withdraw"
	TxGoalRefund     = "goal_refund"
	TxInvestmentBuy  = "investment_buy"
	TxInvestmentSell = "investment_sell"
)

// Transaction is an immutable record of one signed money movement.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	WalletID    string    `json:"wallet_id" db:"wallet_id"`
	Type        string    `json:"type" db:"type"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"` // signed: +credit, -debit
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// VirtualWallet holds a child's coin balance plus lifetime totals.
// Coins must equal the signed sum of all coin transactions for the owner.
type VirtualWallet struct {
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Coins          int64     `json:"coins" db:"coins"`
	LifetimeEarned int64     `json:"lifetime_earned" db:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent" db:"lifetime_spent"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Coin transaction types.
const (
	CoinTxMissionReward   = "mission_reward"
	CoinTxContentReward   = "content_reward"
	CoinTxAchievement     = "achievement_reward"
	CoinTxPurchase        = "purchase"
	CoinTxMarketplaceSale = "marketplace_sale"
	CoinTxMarketplaceBuy  = "marketplace_purchase"
)

// CoinTransaction is an immutable record of one signed coin movement.
type CoinTransaction struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Type      string    `json:"type" db:"type"`
	Amount    int64     `json:"amount" db:"amount"` // signed: +earn, -spend
	SourceRef string    `json:"source_ref" db:"source_ref"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SavingsGoal reserves wallet funds toward a target. Funds held by a goal
// have already been debited from the owner's wallet; deleting the goal
// credits them back.
type SavingsGoal struct {
	ID                 string     `json:"id" db:"id"`
	OwnerID            string     `json:"owner_id" db:"owner_id"`
	Name               string     `json:"name" db:"name"`
	TargetAmountCents  int64      `json:"target_amount_cents" db:"target_amount_cents"`
	CurrentAmountCents int64      `json:"current_amount_cents" db:"current_amount_cents"`
	IsCompleted        bool       `json:"is_completed" db:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Risk levels for investment options.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// InvestmentOption is a simulated tradeable instrument. Price moves only
// through an explicit simulation step; the history is append-only.
type InvestmentOption struct {
	ID                string    `json:"id" db:"id"`
	Symbol            string    `json:"symbol" db:"symbol"`
	Name              string    `json:"name" db:"name"`
	CurrentPriceCents int64     `json:"current_price_cents" db:"current_price_cents"`
	RiskLevel         string    `json:"risk_level" db:"risk_level"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// PricePoint is one entry in an option's append-only price history.
type PricePoint struct {
	OptionID   string    `json:"option_id" db:"option_id"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// InvestmentPosition is a child's holding in one option. Shares are
// fractional; AverageBuyPrice is the cost-basis-weighted average across
// buys and does not change on a sell.
type InvestmentPosition struct {
	OwnerID            string          `json:"owner_id" db:"owner_id"`
	OptionID           string          `json:"option_id" db:"option_id"`
	Shares             decimal.Decimal `json:"shares" db:"shares"`
	AverageBuyPrice    decimal.Decimal `json:"average_buy_price" db:"average_buy_price"` // cents, fractional
	TotalInvestedCents int64           `json:"total_invested_cents" db:"total_invested_cents"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Mission progress statuses. Transitions are monotonic:
// available → in_progress → completed, or → expired when the deadline
// elapses before completion.
const (
	MissionAvailable  = "available"
	MissionInProgress = "in_progress"
	MissionCompleted  = "completed"
	MissionExpired    = "expired"
)

// Mission is a reusable mission template, immutable once published.
type Mission struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	CoinReward  int64      `json:"coin_reward" db:"coin_reward"`
	XPReward    int64      `json:"xp_reward" db:"xp_reward"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// MissionProgress tracks one child's state against one mission template.
type MissionProgress struct {
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	MissionID   string     `json:"mission_id" db:"mission_id"`
	Status      string     `json:"status" db:"status"`
	Progress    int        `json:"progress" db:"progress"` // 0–100
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// EducationalContent is a lesson a child can complete once for a reward.
type EducationalContent struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	CoinReward int64     `json:"coin_reward" db:"coin_reward"`
	XPReward   int64     `json:"xp_reward" db:"xp_reward"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ContentProgress marks a lesson complete for one child. Completion is
// idempotent: the reward is paid at most once.
type ContentProgress struct {
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	ContentID   string     `json:"content_id" db:"content_id"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Achievement requirement types evaluated against aggregated owner stats.
const (
	ReqMissionsCompleted = "missions_completed"
	ReqLifetimeCoins     = "lifetime_coins"
	ReqStreakDays        = "streak_days"
	ReqGoalsCompleted    = "goals_completed"
	ReqLevelReached      = "level_reached"
)

// Achievement is a one-time unlockable with a typed requirement.
type Achievement struct {
	ID               string `json:"id" db:"id"`
	Title            string `json:"title" db:"title"`
	RequirementType  string `json:"requirement_type" db:"requirement_type"`
	RequirementValue int64  `json:"requirement_value" db:"requirement_value"`
	CoinReward       int64  `json:"coin_reward" db:"coin_reward"`
	XPReward         int64  `json:"xp_reward" db:"xp_reward"`
}

// KidAchievement is the unlock record for one (owner, achievement) pair.
// Its existence is the source of truth for "unlocked".
type KidAchievement struct {
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// InventoryItem is an ownership record for one avatar-shop unit. Transferred
// on marketplace purchase, never copied.
type InventoryItem struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	ItemID       string    `json:"item_id" db:"item_id"`
	AcquiredAt   time.Time `json:"acquired_at" db:"acquired_at"`
	AcquiredFrom string    `json:"acquired_from" db:"acquired_from"` // "shop" or "marketplace"
}

// Listing statuses.
const (
	ListingActive    = "active"
	ListingSold      = "sold"
	ListingCancelled = "cancelled"
)

// MarketplaceListing offers one owned inventory unit for coins. At most one
// active listing may reference an inventory item at a time.
type MarketplaceListing struct {
	ID          string     `json:"id" db:"id"`
	SellerID    string     `json:"seller_id" db:"seller_id"`
	InventoryID string     `json:"inventory_id" db:"inventory_id"`
	ItemID      string     `json:"item_id" db:"item_id"`
	CoinPrice   int64      `json:"coin_price" db:"coin_price"`
	Description string     `json:"description" db:"description"`
	Status      string     `json:"status" db:"status"`
	BuyerID     string     `json:"buyer_id,omitempty" db:"buyer_id"`
	SoldAt      *time.Time `json:"sold_at,omitempty" db:"sold_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Allowance frequencies.
const (
	FreqDaily    = "daily"
	FreqWeekly   = "weekly"
	FreqBiweekly = "biweekly"
	FreqMonthly  = "monthly"
)

// AllowanceConfig schedules recurring deposits into a child's wallet.
// NextPaymentAt stays strictly in the future relative to the last applied
// payment; pausing freezes it until resumed.
type AllowanceConfig struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	AmountCents   int64     `json:"amount_cents" db:"amount_cents"`
	Frequency     string    `json:"frequency" db:"frequency"`
	NextPaymentAt time.Time `json:"next_payment_at" db:"next_payment_at"`
	IsActive      bool      `json:"is_active" db:"is_active"`
}

// Progression is a child's XP/level/streak state. Level starts at 1;
// crossing level*100 XP advances the level.
type Progression struct {
	OwnerID        string     `json:"owner_id" db:"owner_id"`
	XP             int64      `json:"xp" db:"xp"`
	Level          int        `json:"level" db:"level"`
	Streak         int        `json:"streak" db:"streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty" db:"last_active_date"`
}
