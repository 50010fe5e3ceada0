package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/observability"
	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

// SpinCooldownError reports when the next spin becomes available.
type SpinCooldownError struct {
	NextSpinAt time.Time
}

func (e *SpinCooldownError) Error() string {
	return fmt.Sprintf("%s: next spin at %s", ErrSpinNotEligible, e.NextSpinAt.Format(time.RFC3339))
}

func (e *SpinCooldownError) Unwrap() error {
	return ErrSpinNotEligible
}

// SpinResult is the outcome of one wheel spin.
type SpinResult struct {
	Spin        Spin
	Profile     Profile
	NextSpinAt  time.Time
	TierChanged bool
}

func (s *Service) wheelStatus(last *Spin, now time.Time) WheelStatus {
	if last == nil {
		return WheelStatus{CanSpin: true}
	}
	lastAt := last.SpunAt
	next := lastAt.Add(s.spinCooldown)
	return WheelStatus{
		CanSpin:    !now.Before(next),
		LastSpinAt: &lastAt,
		NextSpinAt: &next,
	}
}

// WheelStatus reports whether the caller may spin and when the next spin opens.
func (s *Service) WheelStatus(ctx context.Context, userID string) (*WheelStatus, error) {
	last, err := s.repo.LastSpin(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := s.wheelStatus(last, s.now())
	return &status, nil
}

// SpinWheel draws a reward and applies it to the caller's profile in one transaction.
func (s *Service) SpinWheel(ctx context.Context, userID, username string) (*SpinResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}

	var result SpinResult
	err := s.repo.WithinUser(ctx, userID, func(ctx context.Context, uow UnitOfWork) error {
		profile, err := s.lockOrCreate(ctx, uow, userID, username)
		if err != nil {
			return err
		}

		now := s.now()
		last, err := uow.LastSpin(ctx)
		if err != nil {
			return fmt.Errorf("last spin: %w", err)
		}
		if status := s.wheelStatus(last, now); !status.CanSpin {
			return &SpinCooldownError{NextSpinAt: *status.NextSpinAt}
		}

		def := s.draw()
		spin := Spin{ID: newID(), UserID: userID, Reward: def, SpunAt: now}
		next := profile.Clone()
		var envelopes []events.Envelope

		switch def.Category {
		case reward.CategoryPoints:
			progress, err := s.evaluator.AwardPoints(next.Progress, def.Points)
			if err != nil {
				return err
			}
			outcome := progression.Outcome{
				Progress:     progress,
				PreviousTier: next.Progress.CurrentTier,
				TierChanged:  progress.CurrentTier != next.Progress.CurrentTier,
			}
			next.Progress = progress
			envelopes = append(envelopes, progressEnvelope(spin.ID, userID, causeWheel, outcome, def.Points, now))
			if outcome.TierChanged {
				envelopes = append(envelopes, tierEnvelope(spin.ID, userID, outcome.PreviousTier, progress, now))
				result.TierChanged = true
			}
		case reward.CategoryTitle:
			if next.OwnsTitle(def.Label) {
				spin.Duplicate = true
			} else {
				if err := uow.GrantTitle(ctx, def.Label, now); err != nil {
					return fmt.Errorf("grant title: %w", err)
				}
				next.Titles = append(next.Titles, def.Label)
			}
		case reward.CategoryCosmetic:
			if next.OwnsCosmetic(def.Label) {
				spin.Duplicate = true
			} else {
				if err := uow.GrantCosmetic(ctx, def.Label, now); err != nil {
					return fmt.Errorf("grant cosmetic: %w", err)
				}
				next.Cosmetics = append(next.Cosmetics, def.Label)
			}
		default:
			return fmt.Errorf("%w: unhandled category %q", reward.ErrInvalidConfiguration, def.Category)
		}

		if err := uow.InsertSpin(ctx, spin); err != nil {
			return fmt.Errorf("record spin: %w", err)
		}
		next.UpdatedAt = now
		if err := uow.SaveProfile(ctx, next); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		envelopes = append([]events.Envelope{{
			Type:          events.TypeRewardGranted,
			AggregateType: events.AggregateWheelSpin,
			AggregateID:   spin.ID,
			UserID:        userID,
			Payload: events.RewardGranted{
				SpinID:     spin.ID,
				UserID:     userID,
				Category:   string(def.Category),
				Points:     def.Points,
				Label:      def.Label,
				Duplicate:  spin.Duplicate,
				OccurredAt: now,
			},
		}}, envelopes...)
		if err := uow.Publish(ctx, envelopes...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}

		result.Spin = spin
		result.Profile = next
		result.NextSpinAt = now.Add(s.spinCooldown)
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordSpin(string(result.Spin.Reward.Category), result.Spin.Reward.Points)
	if result.TierChanged {
		observability.RecordTierPromotion(result.Profile.Progress.CurrentTier)
	}
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"spin_id":   result.Spin.ID,
		"category":  result.Spin.Reward.Category,
		"reward":    result.Spin.Reward.Value(),
		"duplicate": result.Spin.Duplicate,
	}).Info("wheel spun")

	return &result, nil
}
