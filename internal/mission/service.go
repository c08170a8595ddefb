// Package mission runs the mission and learning-content lifecycle. Status
// transitions are monotonic (available → in_progress → completed, or →
// expired), and completion rewards are paid exactly once: the completion
// record is check-and-set in the same atomic unit as the reward.
package mission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/reward"
	"github.com/moneynplay/engine/internal/store"
)

// Service exposes mission, content, and achievement operations.
type Service struct {
	store    store.Store
	locks    *ownerlock.Keyed
	notifier notify.Notifier
}

func NewService(st store.Store, locks *ownerlock.Keyed, notifier notify.Notifier) *Service {
	return &Service{store: st, locks: locks, notifier: notifier}
}

// CreateMission publishes a mission template. Templates are immutable once
// published.
func (s *Service) CreateMission(ctx context.Context, title, description string, coinReward, xpReward int64, expiresAt *time.Time) (*model.Mission, error) {
	if coinReward < 0 || xpReward < 0 {
		return nil, model.ErrInvalidAmount
	}
	m := &model.Mission{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CoinReward:  coinReward,
		XPReward:    xpReward,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateMission(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMissions returns every mission template.
func (s *Service) ListMissions(ctx context.Context) ([]model.Mission, error) {
	return s.store.ListMissions(ctx)
}

// Progress returns an owner's state against one mission. An owner with no
// record reads as available.
func (s *Service) Progress(ctx context.Context, ownerID, missionID string) (*model.MissionProgress, error) {
	if _, err := s.store.GetMission(ctx, missionID); err != nil {
		return nil, err
	}
	p, err := s.store.GetMissionProgress(ctx, ownerID, missionID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.MissionProgress{OwnerID: ownerID, MissionID: missionID, Status: model.MissionAvailable}, nil
	}
	return p, err
}

// Start moves a mission from available to in_progress for one owner.
func (s *Service) Start(ctx context.Context, ownerID, missionID string) (*model.MissionProgress, error) {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.MissionProgress
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := tx.GetMission(ctx, missionID); err != nil {
			return err
		}
		p, err := tx.GetMissionProgress(ctx, ownerID, missionID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			p = &model.MissionProgress{OwnerID: ownerID, MissionID: missionID, Status: model.MissionAvailable}
		case err != nil:
			return err
		}
		if p.Status != model.MissionAvailable {
			return model.ErrInvalidTransition
		}
		p.Status = model.MissionInProgress
		p.UpdatedAt = time.Now().UTC()
		if err := tx.UpsertMissionProgress(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProgress records partial progress (0–100) on an in_progress mission.
// It never completes the mission; Complete does that.
func (s *Service) UpdateProgress(ctx context.Context, ownerID, missionID string, progress int) (*model.MissionProgress, error) {
	if progress < 0 || progress > 100 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.MissionProgress
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		p, err := tx.GetMissionProgress(ctx, ownerID, missionID)
		if err != nil {
			return err
		}
		if p.Status != model.MissionInProgress {
			return model.ErrInvalidTransition
		}
		p.Progress = progress
		p.UpdatedAt = time.Now().UTC()
		if err := tx.UpsertMissionProgress(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete finishes a mission and pays its reward. Calling it again for an
// already-completed mission returns the existing record and pays nothing. A
// mission past its deadline cannot be completed.
func (s *Service) Complete(ctx context.Context, ownerID, missionID string) (*model.MissionProgress, error) {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.MissionProgress
	var events []notify.Event
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		m, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return err
		}
		p, err := tx.GetMissionProgress(ctx, ownerID, missionID)
		if err != nil {
			return err
		}
		if p.Status == model.MissionCompleted {
			out = p
			return nil
		}
		if p.Status != model.MissionInProgress {
			return model.ErrInvalidTransition
		}
		if m.ExpiresAt != nil && time.Now().After(*m.ExpiresAt) {
			return model.ErrInvalidTransition
		}

		now := time.Now().UTC()
		p.Status = model.MissionCompleted
		p.Progress = 100
		p.CompletedAt = &now
		p.UpdatedAt = now
		if err := tx.UpsertMissionProgress(ctx, p); err != nil {
			return err
		}
		events, err = reward.Grant(ctx, tx, ownerID, m.CoinReward, m.XPReward, model.CoinTxMissionReward, "mission:"+missionID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	reward.Publish(s.notifier, events)
	if len(events) > 0 {
		slog.Info("mission completed", "owner", ownerID, "mission", missionID)
		s.EvaluateAchievements(ctx, ownerID)
	}
	return out, nil
}

// ExpireOverdue sweeps every mission whose deadline has passed, marking
// uncompleted progress records expired. Safe to run repeatedly.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) error {
	missions, err := s.store.ListMissions(ctx)
	if err != nil {
		return err
	}
	for _, m := range missions {
		if m.ExpiresAt == nil || now.Before(*m.ExpiresAt) {
			continue
		}
		records, err := s.store.ListMissionProgressByMission(ctx, m.ID)
		if err != nil {
			return err
		}
		for _, p := range records {
			if p.Status == model.MissionCompleted || p.Status == model.MissionExpired {
				continue
			}
			p := p
			err := s.store.Atomic(ctx, func(tx store.Store) error {
				cur, err := tx.GetMissionProgress(ctx, p.OwnerID, p.MissionID)
				if err != nil {
					return err
				}
				if cur.Status == model.MissionCompleted || cur.Status == model.MissionExpired {
					return nil
				}
				cur.Status = model.MissionExpired
				cur.UpdatedAt = now.UTC()
				return tx.UpsertMissionProgress(ctx, cur)
			})
			if err != nil {
				return err
			}
			if s.notifier != nil {
				s.notifier.Publish(notify.Event{
					Type:    notify.TypeMissionExpired,
					OwnerID: p.OwnerID,
					Payload: notify.MissionExpired{MissionID: p.MissionID},
				})
			}
		}
	}
	return nil
}

// CreateContent publishes a lesson.
func (s *Service) CreateContent(ctx context.Context, title string, coinReward, xpReward int64) (*model.EducationalContent, error) {
	if coinReward < 0 || xpReward < 0 {
		return nil, model.ErrInvalidAmount
	}
	c := &model.EducationalContent{
		ID:         uuid.New().String(),
		Title:      title,
		CoinReward: coinReward,
		XPReward:   xpReward,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateContent(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CompleteContent marks a lesson done and pays its reward once. Repeat calls
// are no-ops.
func (s *Service) CompleteContent(ctx context.Context, ownerID, contentID string) (*model.ContentProgress, error) {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.ContentProgress
	var events []notify.Event
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		c, err := tx.GetContent(ctx, contentID)
		if err != nil {
			return err
		}
		p, err := tx.GetContentProgress(ctx, ownerID, contentID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			p = &model.ContentProgress{OwnerID: ownerID, ContentID: contentID}
		case err != nil:
			return err
		}
		if p.IsCompleted {
			out = p
			return nil
		}
		now := time.Now().UTC()
		p.IsCompleted = true
		p.CompletedAt = &now
		if err := tx.UpsertContentProgress(ctx, p); err != nil {
			return err
		}
		events, err = reward.Grant(ctx, tx, ownerID, c.CoinReward, c.XPReward, model.CoinTxContentReward, "content:"+contentID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	reward.Publish(s.notifier, events)
	if len(events) > 0 {
		s.EvaluateAchievements(ctx, ownerID)
	}
	return out, nil
}
