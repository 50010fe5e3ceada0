package domain

import (
	"context"
	"fmt"
	"time"

	"example.com/kaitrack/internal/observability"
)

const (
	defaultRankingPageSize = 20
	maxRankingPageSize     = 100
	interactionWindow      = 24 * time.Hour
)

// Rankings returns one leaderboard page. Weekly and monthly periods only include
// users active in the last 7 or 30 days.
func (s *Service) Rankings(ctx context.Context, query RankingQuery) ([]RankingEntry, error) {
	switch query.Period {
	case "":
		query.Period = PeriodGlobal
	case PeriodGlobal, PeriodMonthly, PeriodWeekly:
	default:
		return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidArgument, query.Period)
	}
	switch query.Sort {
	case "":
		query.Sort = SortKaiPoints
	case SortKaiPoints, SortStreak, SortRank:
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidArgument, query.Sort)
	}
	switch query.Direction {
	case "":
		query.Direction = SortDesc
	case SortAsc, SortDesc:
	default:
		return nil, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidArgument, query.Direction)
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultRankingPageSize
	}
	if query.PageSize > maxRankingPageSize {
		query.PageSize = maxRankingPageSize
	}

	today := s.today()
	switch query.Period {
	case PeriodWeekly:
		since := today.AddDays(-6)
		query.ActiveSince = &since
	case PeriodMonthly:
		since := today.AddDays(-29)
		query.ActiveSince = &since
	}

	entries, err := s.repo.Rankings(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Position = query.Offset() + i + 1
	}
	return entries, nil
}

// SendInteraction records a gesture from sender to receiver, at most once per type per day.
func (s *Service) SendInteraction(ctx context.Context, senderID, receiverID string, kind InteractionType) (*Interaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown interaction %q", ErrInvalidArgument, kind)
	}
	if receiverID == "" {
		return nil, fmt.Errorf("%w: receiver required", ErrInvalidArgument)
	}
	if senderID == receiverID {
		return nil, ErrSelfInteraction
	}

	interaction := Interaction{
		ID:         newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       kind,
		Day:        s.today(),
		CreatedAt:  s.now(),
	}
	err := s.repo.WithinUser(ctx, senderID, func(ctx context.Context, uow UnitOfWork) error {
		ok, err := uow.ProfileExists(ctx, receiverID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProfileNotFound
		}
		return uow.InsertInteraction(ctx, interaction)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("sender_id", senderID).WithField("receiver_id", receiverID).WithField("type", kind).Debug("interaction sent")
	return &interaction, nil
}

// ListInteractions returns gestures received in the last 24 hours.
func (s *Service) ListInteractions(ctx context.Context, receiverID string) ([]Interaction, error) {
	return s.repo.ListInteractions(ctx, receiverID, s.now().Add(-interactionWindow))
}

// SweepLapsedStreaks zeroes current streaks that can no longer be continued today.
func (s *Service) SweepLapsedStreaks(ctx context.Context) (int, error) {
	cutoff := s.today().AddDays(-1)
	users, err := s.repo.ResetLapsedStreaks(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset lapsed streaks: %w", err)
	}
	observability.RecordStreaksReset(len(users))
	s.log.WithField("cutoff", cutoff.String()).WithField("reset", len(users)).Info("lapsed streak sweep finished")
	return len(users), nil
}
