// Package domain defines the business logic for workouts, progression and rewards.
package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

// Config wires the collaborators a Service needs. Zero values get defaults.
type Config struct {
	Evaluator    *progression.Evaluator
	Rewards      *reward.Table
	Random       reward.Source
	Clock        func() time.Time
	Location     *time.Location
	SpinCooldown time.Duration
	Logger       *logrus.Entry
}

// Service orchestrates workout, wheel and social workflows.
type Service struct {
	repo         Repository
	evaluator    *progression.Evaluator
	rewards      *reward.Table
	clock        func() time.Time
	location     *time.Location
	spinCooldown time.Duration
	log          *logrus.Entry

	randMu sync.Mutex
	random reward.Source
}

// NewService constructs a Service.
func NewService(repo Repository, cfg Config) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("domain: nil repository")
	}
	if cfg.Evaluator == nil {
		e, err := progression.NewEvaluator(progression.DefaultRankTable(), progression.DefaultRules())
		if err != nil {
			return nil, err
		}
		cfg.Evaluator = e
	}
	if cfg.Rewards == nil {
		cfg.Rewards = reward.DefaultTable()
	}
	if cfg.Random == nil {
		return nil, fmt.Errorf("domain: nil random source")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SpinCooldown <= 0 {
		cfg.SpinCooldown = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		repo:         repo,
		evaluator:    cfg.Evaluator,
		rewards:      cfg.Rewards,
		random:       cfg.Random,
		clock:        cfg.Clock,
		location:     cfg.Location,
		spinCooldown: cfg.SpinCooldown,
		log:          cfg.Logger,
	}, nil
}

// RankTable exposes the configured tiers.
func (s *Service) RankTable() *progression.RankTable {
	return s.evaluator.Table()
}

// RewardTable exposes the configured wheel.
func (s *Service) RewardTable() *reward.Table {
	return s.rewards
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) today() progression.Date {
	return progression.Today(s.clock(), s.location)
}

func (s *Service) draw() reward.Definition {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rewards.Select(s.random)
}

func (s *Service) newProfile(userID, username string) Profile {
	now := s.now()
	if strings.TrimSpace(username) == "" {
		username = DefaultUsername
	}
	return Profile{
		UserID:    userID,
		Username:  username,
		Progress:  progression.NewUserProgress(s.evaluator.Table()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// lockOrCreate returns the caller's locked profile, creating it on first use.
func (s *Service) lockOrCreate(ctx context.Context, uow UnitOfWork, userID, username string) (*Profile, error) {
	profile, err := uow.LockProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}
	fresh := s.newProfile(userID, username)
	if err := uow.CreateProfile(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &fresh, nil
}

// GetOrCreateProfile returns the caller's profile, creating it with defaults on first access.
func (s *Service) GetOrCreateProfile(ctx context.Context, userID, username string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}
	existing, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var out Profile
	err = s.repo.WithinUser(ctx, userID, func(ctx context.Context, uow UnitOfWork) error {
		profile, err := uow.LockProfile(ctx)
		if err != nil {
			return err
		}
		if profile != nil {
			out = *profile
			return nil
		}
		out = s.newProfile(userID, username)
		return uow.CreateProfile(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", userID).Info("profile created")
	return &out, nil
}

// UpdateProfileInput carries optional profile edits. An empty equip value unequips.
type UpdateProfileInput struct {
	Username         *string
	EquippedTitle    *string
	EquippedCosmetic *string
}

// UpdateProfile applies username and equipment changes. Equipped items must be owned.
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*Profile, error) {
	if input.Username != nil {
		name := strings.TrimSpace(*input.Username)
		if name == "" || len(name) > 32 {
			return nil, fmt.Errorf("%w: username must be 1-32 characters", ErrInvalidArgument)
		}
		input.Username = &name
	}

	var out Profile
	err := s.repo.WithinUser(ctx, userID, func(ctx context.Context, uow UnitOfWork) error {
		profile, err := uow.LockProfile(ctx)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrProfileNotFound
		}
		next := profile.Clone()
		if input.Username != nil {
			next.Username = *input.Username
		}
		if input.EquippedTitle != nil {
			if *input.EquippedTitle != "" && !next.OwnsTitle(*input.EquippedTitle) {
				return fmt.Errorf("%w: title %q", ErrNotOwned, *input.EquippedTitle)
			}
			next.EquippedTitle = *input.EquippedTitle
		}
		if input.EquippedCosmetic != nil {
			if *input.EquippedCosmetic != "" && !next.OwnsCosmetic(*input.EquippedCosmetic) {
				return fmt.Errorf("%w: cosmetic %q", ErrNotOwned, *input.EquippedCosmetic)
			}
			next.EquippedCosmetic = *input.EquippedCosmetic
		}
		next.UpdatedAt = s.now()
		if err := uow.SaveProfile(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats summarises the caller's activity relative to today.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	today := s.today()
	weekStart := progression.WeekStart(today)
	monthStart := progression.MonthStart(today)

	weekly, err := s.repo.CountWorkouts(ctx, userID, &weekStart, &today)
	if err != nil {
		return nil, fmt.Errorf("count weekly workouts: %w", err)
	}
	monthly, err := s.repo.CountWorkouts(ctx, userID, &monthStart, &today)
	if err != nil {
		return nil, fmt.Errorf("count monthly workouts: %w", err)
	}
	total, err := s.repo.CountWorkouts(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("count workouts: %w", err)
	}

	status, days := progression.StatusOf(profile.Progress, today)
	return &Stats{
		Progress:              profile.Progress,
		WorkoutsThisWeek:      weekly,
		WorkoutsThisMonth:     monthly,
		TotalWorkouts:         total,
		TierProgress:          s.evaluator.Table().Progress(profile.Progress.CumulativeScore),
		StreakStatus:          status,
		DaysSinceLastActivity: days,
		WeekStart:             weekStart,
		MonthStart:            monthStart,
	}, nil
}

func newID() string {
	return uuid.NewString()
}
