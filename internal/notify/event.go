// Package notify delivers fire-and-forget events to connected clients.
// Delivery failure never rolls back the ledger mutation that produced the
// event; engines publish only after their atomic unit has committed.
package notify

// Type identifies an event kind.
type Type string

const (
	TypeLevelUp             Type = "level_up"
	TypeGoalReached         Type = "goal_reached"
	TypeRewardGranted       Type = "reward_granted"
	TypeAchievementUnlocked Type = "achievement_unlocked"
	TypeMarketplaceSale     Type = "marketplace_sale"
	TypeAllowanceReceived   Type = "allowance_received"
	TypeMissionExpired      Type = "mission_expired"
)

// Payload is the closed set of event bodies. Each event type carries exactly
// one payload variant; consumers switch on the concrete type instead of
// digging through untyped metadata.
type Payload interface {
	eventPayload()
}

// LevelUp is sent once per level crossed, even on a multi-level XP award.
type LevelUp struct {
	Level int `json:"level"`
}

// GoalReached is sent when a savings goal first hits its target.
type GoalReached struct {
	GoalID      string `json:"goal_id"`
	Name        string `json:"name"`
	TargetCents int64  `json:"target_cents"`
}

// RewardGranted is sent when coins/XP are credited for a completion.
type RewardGranted struct {
	Coins     int64  `json:"coins"`
	XP        int64  `json:"xp"`
	SourceRef string `json:"source_ref"`
}

// AchievementUnlocked is sent on the one-time unlock of an achievement.
type AchievementUnlocked struct {
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
}

// MarketplaceSale is sent to the seller when their listing sells.
type MarketplaceSale struct {
	ListingID string `json:"listing_id"`
	BuyerID   string `json:"buyer_id"`
	CoinPrice int64  `json:"coin_price"`
}

// AllowanceReceived is sent for each applied allowance payment.
type AllowanceReceived struct {
	AmountCents int64 `json:"amount_cents"`
}

// MissionExpired is sent when an overdue mission is swept to expired.
type MissionExpired struct {
	MissionID string `json:"mission_id"`
}

func (LevelUp) eventPayload()             {}
func (GoalReached) eventPayload()         {}
func (RewardGranted) eventPayload()       {}
func (AchievementUnlocked) eventPayload() {}
func (MarketplaceSale) eventPayload()     {}
func (AllowanceReceived) eventPayload()   {}
func (MissionExpired) eventPayload()      {}

// Event is one notification addressed to one owner.
type Event struct {
	Type    Type    `json:"type"`
	OwnerID string  `json:"owner_id"`
	Payload Payload `json:"payload,omitempty"`
}

// Notifier publishes events. Implementations must never block the caller.
type Notifier interface {
	Publish(e Event)
}
