package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/moneynplay/engine/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// methods serve inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Fractional values (shares, cost basis) are stored as NUMERIC for exact
// decimal precision; money is BIGINT cents.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

// Atomic runs fn inside a database transaction. A store that is already
// transactional just runs fn directly, so nested units join the outer one.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

// --- Money wallets ---

func (s *PostgresStore) CreateWallet(ctx context.Context, w *model.Wallet) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO wallets (id, owner_id, balance_cents, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.OwnerID, w.BalanceCents, w.Currency, w.CreatedAt)
	return err
}

func (s *PostgresStore) scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.BalanceCents, &w.Currency, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	w, err := s.scanWallet(s.q.QueryRow(ctx,
		`SELECT id, owner_id, balance_cents, currency, created_at
		 FROM wallets WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "wallet", id)
	}
	return w, nil
}

func (s *PostgresStore) GetWalletByOwner(ctx context.Context, ownerID string) (*model.Wallet, error) {
	w, err := s.scanWallet(s.q.QueryRow(ctx,
		`SELECT id, owner_id, balance_cents, currency, created_at
		 FROM wallets WHERE owner_id = $1 FOR UPDATE`, ownerID))
	if err != nil {
		return nil, notFound(err, "wallet for owner", ownerID)
	}
	return w, nil
}

func (s *PostgresStore) SetWalletBalance(ctx context.Context, id string, balanceCents int64) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE wallets SET balance_cents = $2 WHERE id = $1`, id, balanceCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO transactions (id, wallet_id, type, amount_cents, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.WalletID, t.Type, t.AmountCents, t.Description, t.CreatedAt)
	return err
}

func (s *PostgresStore) GetTransactionsByWallet(ctx context.Context, walletID string) ([]model.Transaction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, wallet_id, type, amount_cents, description, created_at
		 FROM transactions WHERE wallet_id = $1 ORDER BY created_at`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.AmountCents, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Virtual wallets ---

func (s *PostgresStore) CreateVirtualWallet(ctx context.Context, w *model.VirtualWallet) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO virtual_wallets (owner_id, coins, lifetime_earned, lifetime_spent, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.OwnerID, w.Coins, w.LifetimeEarned, w.LifetimeSpent, w.UpdatedAt)
	return err
}

func (s *PostgresStore) GetVirtualWallet(ctx context.Context, ownerID string) (*model.VirtualWallet, error) {
	var w model.VirtualWallet
	err := s.q.QueryRow(ctx,
		`SELECT owner_id, coins, lifetime_earned, lifetime_spent, updated_at
		 FROM virtual_wallets WHERE owner_id = $1 FOR UPDATE`, ownerID).
		Scan(&w.OwnerID, &w.Coins, &w.LifetimeEarned, &w.LifetimeSpent, &w.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "virtual wallet for", ownerID)
	}
	return &w, nil
}

func (s *PostgresStore) UpdateVirtualWallet(ctx context.Context, w *model.VirtualWallet) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE virtual_wallets
		 SET coins = $2, lifetime_earned = $3, lifetime_spent = $4, updated_at = $5
		 WHERE owner_id = $1`,
		w.OwnerID, w.Coins, w.LifetimeEarned, w.LifetimeSpent, w.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("virtual wallet for %s: %w", w.OwnerID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertCoinTransaction(ctx context.Context, t *model.CoinTransaction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO coin_transactions (id, owner_id, type, amount, source_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.OwnerID, t.Type, t.Amount, t.SourceRef, t.CreatedAt)
	return err
}

func (s *PostgresStore) GetCoinTransactionsByOwner(ctx context.Context, ownerID string) ([]model.CoinTransaction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, owner_id, type, amount, source_ref, created_at
		 FROM coin_transactions WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CoinTransaction
	for rows.Next() {
		var t model.CoinTransaction
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.SourceRef, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Savings goals ---

func (s *PostgresStore) CreateGoal(ctx context.Context, g *model.SavingsGoal) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO savings_goals
		 (id, owner_id, name, target_amount_cents, current_amount_cents, is_completed, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID, g.OwnerID, g.Name, g.TargetAmountCents, g.CurrentAmountCents,
		g.IsCompleted, g.CompletedAt, g.CreatedAt)
	return err
}

func scanGoal(row pgx.Row) (*model.SavingsGoal, error) {
	var g model.SavingsGoal
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmountCents,
		&g.CurrentAmountCents, &g.IsCompleted, &g.CompletedAt, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) GetGoal(ctx context.Context, id string) (*model.SavingsGoal, error) {
	g, err := scanGoal(s.q.QueryRow(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents,
		        is_completed, completed_at, created_at
		 FROM savings_goals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "goal", id)
	}
	return g, nil
}

func (s *PostgresStore) ListGoalsByOwner(ctx context.Context, ownerID string) ([]model.SavingsGoal, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents,
		        is_completed, completed_at, created_at
		 FROM savings_goals WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SavingsGoal
	for rows.Next() {
		var g model.SavingsGoal
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmountCents,
			&g.CurrentAmountCents, &g.IsCompleted, &g.CompletedAt, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateGoal(ctx context.Context, g *model.SavingsGoal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE savings_goals
		 SET current_amount_cents = $2, is_completed = $3, completed_at = $4
		 WHERE id = $1`,
		g.ID, g.CurrentAmountCents, g.IsCompleted, g.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("goal %s: %w", g.ID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteGoal(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM savings_goals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountCompletedGoals(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM savings_goals WHERE owner_id = $1 AND is_completed`, ownerID).Scan(&n)
	return n, err
}

// --- Investment options ---

func (s *PostgresStore) CreateOption(ctx context.Context, o *model.InvestmentOption) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO investment_options (id, symbol, name, current_price_cents, risk_level, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Symbol, o.Name, o.CurrentPriceCents, o.RiskLevel, o.IsActive, o.CreatedAt)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx,
		`INSERT INTO price_history (option_id, price_cents, ts) VALUES ($1, $2, $3)`,
		o.ID, o.CurrentPriceCents, o.CreatedAt)
	return err
}

func (s *PostgresStore) GetOption(ctx context.Context, id string) (*model.InvestmentOption, error) {
	var o model.InvestmentOption
	err := s.q.QueryRow(ctx,
		`SELECT id, symbol, name, current_price_cents, risk_level, is_active, created_at
		 FROM investment_options WHERE id = $1`, id).
		Scan(&o.ID, &o.Symbol, &o.Name, &o.CurrentPriceCents, &o.RiskLevel, &o.IsActive, &o.CreatedAt)
	if err != nil {
		return nil, notFound(err, "option", id)
	}
	return &o, nil
}

func (s *PostgresStore) ListOptions(ctx context.Context) ([]model.InvestmentOption, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, symbol, name, current_price_cents, risk_level, is_active, created_at
		 FROM investment_options ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InvestmentOption
	for rows.Next() {
		var o model.InvestmentOption
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Name, &o.CurrentPriceCents,
			&o.RiskLevel, &o.IsActive, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetOptionPrice(ctx context.Context, id string, priceCents int64, at time.Time) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE investment_options SET current_price_cents = $2 WHERE id = $1`, id, priceCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("option %s: %w", id, model.ErrNotFound)
	}
	_, err = s.q.Exec(ctx,
		`INSERT INTO price_history (option_id, price_cents, ts) VALUES ($1, $2, $3)`,
		id, priceCents, at)
	return err
}

func (s *PostgresStore) SetOptionActive(ctx context.Context, id string, active bool) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE investment_options SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("option %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetPriceHistory(ctx context.Context, optionID string, limit int) ([]model.PricePoint, error) {
	q := `SELECT option_id, price_cents, ts FROM price_history
	      WHERE option_id = $1 ORDER BY ts DESC`
	args := []any{optionID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.OptionID, &p.PriceCents, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to time-ascending order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// --- Investment positions ---

func scanPosition(row pgx.Row) (*model.InvestmentPosition, error) {
	var p model.InvestmentPosition
	var shares, avg string
	err := row.Scan(&p.OwnerID, &p.OptionID, &shares, &avg, &p.TotalInvestedCents, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := parsePositionDecimals(&p, shares, avg); err != nil {
		return nil, err
	}
	return &p, nil
}

// parsePositionDecimals fills the NUMERIC-backed fields. A value that does
// not parse is a data error and must surface, never a zeroed position.
func parsePositionDecimals(p *model.InvestmentPosition, shares, avg string) error {
	var err error
	if p.Shares, err = decimal.NewFromString(shares); err != nil {
		return fmt.Errorf("parse position shares %q: %w", shares, err)
	}
	if p.AverageBuyPrice, err = decimal.NewFromString(avg); err != nil {
		return fmt.Errorf("parse position average buy price %q: %w", avg, err)
	}
	return nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, ownerID, optionID string) (*model.InvestmentPosition, error) {
	p, err := scanPosition(s.q.QueryRow(ctx,
		`SELECT owner_id, option_id, shares::TEXT, average_buy_price::TEXT, total_invested_cents, updated_at
		 FROM investment_positions WHERE owner_id = $1 AND option_id = $2 FOR UPDATE`,
		ownerID, optionID))
	if err != nil {
		return nil, notFound(err, "position", ownerID+"/"+optionID)
	}
	return p, nil
}

func (s *PostgresStore) ListPositionsByOwner(ctx context.Context, ownerID string) ([]model.InvestmentPosition, error) {
	rows, err := s.q.Query(ctx,
		`SELECT owner_id, option_id, shares::TEXT, average_buy_price::TEXT, total_invested_cents, updated_at
		 FROM investment_positions WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InvestmentPosition
	for rows.Next() {
		var p model.InvestmentPosition
		var shares, avg string
		if err := rows.Scan(&p.OwnerID, &p.OptionID, &shares, &avg, &p.TotalInvestedCents, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := parsePositionDecimals(&p, shares, avg); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertPosition(ctx context.Context, p *model.InvestmentPosition) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO investment_positions
		 (owner_id, option_id, shares, average_buy_price, total_invested_cents, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5, $6)
		 ON CONFLICT (owner_id, option_id) DO UPDATE
		 SET shares = EXCLUDED.shares,
		     average_buy_price = EXCLUDED.average_buy_price,
		     total_invested_cents = EXCLUDED.total_invested_cents,
		     updated_at = EXCLUDED.updated_at`,
		p.OwnerID, p.OptionID, p.Shares.String(), p.AverageBuyPrice.String(),
		p.TotalInvestedCents, p.UpdatedAt)
	return err
}

func (s *PostgresStore) DeletePosition(ctx context.Context, ownerID, optionID string) error {
	_, err := s.q.Exec(ctx,
		`DELETE FROM investment_positions WHERE owner_id = $1 AND option_id = $2`,
		ownerID, optionID)
	return err
}

// --- Progression ---

func (s *PostgresStore) GetProgression(ctx context.Context, ownerID string) (*model.Progression, error) {
	var p model.Progression
	err := s.q.QueryRow(ctx,
		`SELECT owner_id, xp, level, streak, last_active_date
		 FROM progressions WHERE owner_id = $1 FOR UPDATE`, ownerID).
		Scan(&p.OwnerID, &p.XP, &p.Level, &p.Streak, &p.LastActiveDate)
	if err != nil {
		return nil, notFound(err, "progression for", ownerID)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProgression(ctx context.Context, p *model.Progression) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO progressions (owner_id, xp, level, streak, last_active_date)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (owner_id) DO UPDATE
		 SET xp = EXCLUDED.xp, level = EXCLUDED.level,
		     streak = EXCLUDED.streak, last_active_date = EXCLUDED.last_active_date`,
		p.OwnerID, p.XP, p.Level, p.Streak, p.LastActiveDate)
	return err
}

// --- Missions & learning content ---

func (s *PostgresStore) CreateMission(ctx context.Context, m *model.Mission) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO missions (id, title, description, coin_reward, xp_reward, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Title, m.Description, m.CoinReward, m.XPReward, m.ExpiresAt, m.CreatedAt)
	return err
}

func (s *PostgresStore) GetMission(ctx context.Context, id string) (*model.Mission, error) {
	var m model.Mission
	err := s.q.QueryRow(ctx,
		`SELECT id, title, description, coin_reward, xp_reward, expires_at, created_at
		 FROM missions WHERE id = $1`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.CoinReward, &m.XPReward, &m.ExpiresAt, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err, "mission", id)
	}
	return &m, nil
}

func (s *PostgresStore) ListMissions(ctx context.Context) ([]model.Mission, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, title, description, coin_reward, xp_reward, expires_at, created_at
		 FROM missions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Mission
	for rows.Next() {
		var m model.Mission
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.CoinReward,
			&m.XPReward, &m.ExpiresAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetMissionProgress(ctx context.Context, ownerID, missionID string) (*model.MissionProgress, error) {
	var p model.MissionProgress
	err := s.q.QueryRow(ctx,
		`SELECT owner_id, mission_id, status, progress, completed_at, updated_at
		 FROM mission_progress WHERE owner_id = $1 AND mission_id = $2 FOR UPDATE`,
		ownerID, missionID).
		Scan(&p.OwnerID, &p.MissionID, &p.Status, &p.Progress, &p.CompletedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "mission progress", ownerID+"/"+missionID)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertMissionProgress(ctx context.Context, p *model.MissionProgress) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO mission_progress (owner_id, mission_id, status, progress, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner_id, mission_id) DO UPDATE
		 SET status = EXCLUDED.status, progress = EXCLUDED.progress,
		     completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`,
		p.OwnerID, p.MissionID, p.Status, p.Progress, p.CompletedAt, p.UpdatedAt)
	return err
}

func (s *PostgresStore) ListMissionProgressByMission(ctx context.Context, missionID string) ([]model.MissionProgress, error) {
	rows, err := s.q.Query(ctx,
		`SELECT owner_id, mission_id, status, progress, completed_at, updated_at
		 FROM mission_progress WHERE mission_id = $1`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MissionProgress
	for rows.Next() {
		var p model.MissionProgress
		if err := rows.Scan(&p.OwnerID, &p.MissionID, &p.Status, &p.Progress,
			&p.CompletedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountCompletedMissions(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM mission_progress WHERE owner_id = $1 AND status = 'completed'`,
		ownerID).Scan(&n)
	return n, err
}

func (s *PostgresStore) CreateContent(ctx context.Context, c *model.EducationalContent) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO educational_content (id, title, coin_reward, xp_reward, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Title, c.CoinReward, c.XPReward, c.CreatedAt)
	return err
}

func (s *PostgresStore) GetContent(ctx context.Context, id string) (*model.EducationalContent, error) {
	var c model.EducationalContent
	err := s.q.QueryRow(ctx,
		`SELECT id, title, coin_reward, xp_reward, created_at
		 FROM educational_content WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.CoinReward, &c.XPReward, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "content", id)
	}
	return &c, nil
}

func (s *PostgresStore) GetContentProgress(ctx context.Context, ownerID, contentID string) (*model.ContentProgress, error) {
	var p model.ContentProgress
	err := s.q.QueryRow(ctx,
		`SELECT owner_id, content_id, is_completed, completed_at
		 FROM content_progress WHERE owner_id = $1 AND content_id = $2 FOR UPDATE`,
		ownerID, contentID).
		Scan(&p.OwnerID, &p.ContentID, &p.IsCompleted, &p.CompletedAt)
	if err != nil {
		return nil, notFound(err, "content progress", ownerID+"/"+contentID)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertContentProgress(ctx context.Context, p *model.ContentProgress) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO content_progress (owner_id, content_id, is_completed, completed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, content_id) DO UPDATE
		 SET is_completed = EXCLUDED.is_completed, completed_at = EXCLUDED.completed_at`,
		p.OwnerID, p.ContentID, p.IsCompleted, p.CompletedAt)
	return err
}

// --- Achievements ---

func (s *PostgresStore) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO achievements (id, title, requirement_type, requirement_value, coin_reward, xp_reward)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Title, a.RequirementType, a.RequirementValue, a.CoinReward, a.XPReward)
	return err
}

func (s *PostgresStore) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, title, requirement_type, requirement_value, coin_reward, xp_reward
		 FROM achievements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Title, &a.RequirementType, &a.RequirementValue,
			&a.CoinReward, &a.XPReward); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetKidAchievement(ctx context.Context, ownerID, achievementID string) (*model.KidAchievement, error) {
	var a model.KidAchievement
	err := s.q.QueryRow(ctx,
		`SELECT owner_id, achievement_id, unlocked_at
		 FROM kid_achievements WHERE owner_id = $1 AND achievement_id = $2`,
		ownerID, achievementID).
		Scan(&a.OwnerID, &a.AchievementID, &a.UnlockedAt)
	if err != nil {
		return nil, notFound(err, "kid achievement", ownerID+"/"+achievementID)
	}
	return &a, nil
}

func (s *PostgresStore) InsertKidAchievement(ctx context.Context, a *model.KidAchievement) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO kid_achievements (owner_id, achievement_id, unlocked_at)
		 VALUES ($1, $2, $3)`,
		a.OwnerID, a.AchievementID, a.UnlockedAt)
	return err
}

// --- Inventory & marketplace listings ---

func (s *PostgresStore) InsertInventoryItem(ctx context.Context, it *model.InventoryItem) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO inventory_items (id, owner_id, item_id, acquired_at, acquired_from)
		 VALUES ($1, $2, $3, $4, $5)`,
		it.ID, it.OwnerID, it.ItemID, it.AcquiredAt, it.AcquiredFrom)
	return err
}

func (s *PostgresStore) GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := s.q.QueryRow(ctx,
		`SELECT id, owner_id, item_id, acquired_at, acquired_from
		 FROM inventory_items WHERE id = $1 FOR UPDATE`, id).
		Scan(&it.ID, &it.OwnerID, &it.ItemID, &it.AcquiredAt, &it.AcquiredFrom)
	if err != nil {
		return nil, notFound(err, "inventory item", id)
	}
	return &it, nil
}

func (s *PostgresStore) ListInventoryByOwner(ctx context.Context, ownerID string) ([]model.InventoryItem, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, owner_id, item_id, acquired_at, acquired_from
		 FROM inventory_items WHERE owner_id = $1 ORDER BY acquired_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.ItemID, &it.AcquiredAt, &it.AcquiredFrom); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetInventoryOwner(ctx context.Context, id, ownerID, acquiredFrom string) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE inventory_items SET owner_id = $2, acquired_from = $3, acquired_at = now() WHERE id = $1`,
		id, ownerID, acquiredFrom)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func scanListing(row pgx.Row) (*model.MarketplaceListing, error) {
	var l model.MarketplaceListing
	var buyerID *string
	err := row.Scan(&l.ID, &l.SellerID, &l.InventoryID, &l.ItemID, &l.CoinPrice,
		&l.Description, &l.Status, &buyerID, &l.SoldAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if buyerID != nil {
		l.BuyerID = *buyerID
	}
	return &l, nil
}

const listingCols = `id, seller_id, inventory_id, item_id, coin_price, description, status, buyer_id, sold_at, created_at`

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.MarketplaceListing) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO marketplace_listings
		 (`+listingCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		l.ID, l.SellerID, l.InventoryID, l.ItemID, l.CoinPrice,
		l.Description, l.Status, l.BuyerID, l.SoldAt, l.CreatedAt)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.MarketplaceListing, error) {
	l, err := scanListing(s.q.QueryRow(ctx,
		`SELECT `+listingCols+` FROM marketplace_listings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "listing", id)
	}
	return l, nil
}

func (s *PostgresStore) GetActiveListingByInventory(ctx context.Context, inventoryID string) (*model.MarketplaceListing, error) {
	l, err := scanListing(s.q.QueryRow(ctx,
		`SELECT `+listingCols+` FROM marketplace_listings
		 WHERE inventory_id = $1 AND status = 'active'`, inventoryID))
	if err != nil {
		return nil, notFound(err, "active listing for inventory", inventoryID)
	}
	return l, nil
}

func (s *PostgresStore) ListActiveListings(ctx context.Context) ([]model.MarketplaceListing, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+listingCols+` FROM marketplace_listings
		 WHERE status = 'active' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MarketplaceListing
	for rows.Next() {
		var l model.MarketplaceListing
		var buyerID *string
		if err := rows.Scan(&l.ID, &l.SellerID, &l.InventoryID, &l.ItemID, &l.CoinPrice,
			&l.Description, &l.Status, &buyerID, &l.SoldAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		if buyerID != nil {
			l.BuyerID = *buyerID
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateListing(ctx context.Context, l *model.MarketplaceListing) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE marketplace_listings
		 SET status = $2, buyer_id = NULLIF($3, ''), sold_at = $4
		 WHERE id = $1`,
		l.ID, l.Status, l.BuyerID, l.SoldAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s: %w", l.ID, model.ErrNotFound)
	}
	return nil
}

// --- Allowances ---

func (s *PostgresStore) CreateAllowance(ctx context.Context, a *model.AllowanceConfig) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO allowance_configs (id, owner_id, amount_cents, frequency, next_payment_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.OwnerID, a.AmountCents, a.Frequency, a.NextPaymentAt, a.IsActive)
	return err
}

func scanAllowance(row pgx.Row) (*model.AllowanceConfig, error) {
	var a model.AllowanceConfig
	err := row.Scan(&a.ID, &a.OwnerID, &a.AmountCents, &a.Frequency, &a.NextPaymentAt, &a.IsActive)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAllowance(ctx context.Context, id string) (*model.AllowanceConfig, error) {
	a, err := scanAllowance(s.q.QueryRow(ctx,
		`SELECT id, owner_id, amount_cents, frequency, next_payment_at, is_active
		 FROM allowance_configs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "allowance", id)
	}
	return a, nil
}

func (s *PostgresStore) GetAllowanceByOwner(ctx context.Context, ownerID string) (*model.AllowanceConfig, error) {
	a, err := scanAllowance(s.q.QueryRow(ctx,
		`SELECT id, owner_id, amount_cents, frequency, next_payment_at, is_active
		 FROM allowance_configs WHERE owner_id = $1 FOR UPDATE`, ownerID))
	if err != nil {
		return nil, notFound(err, "allowance for owner", ownerID)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAllowance(ctx context.Context, a *model.AllowanceConfig) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE allowance_configs
		 SET amount_cents = $2, frequency = $3, next_payment_at = $4, is_active = $5
		 WHERE id = $1`,
		a.ID, a.AmountCents, a.Frequency, a.NextPaymentAt, a.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowance %s: %w", a.ID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListDueAllowances(ctx context.Context, now time.Time) ([]model.AllowanceConfig, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, owner_id, amount_cents, frequency, next_payment_at, is_active
		 FROM allowance_configs WHERE is_active AND next_payment_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AllowanceConfig
	for rows.Next() {
		var a model.AllowanceConfig
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.AmountCents, &a.Frequency,
			&a.NextPaymentAt, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
