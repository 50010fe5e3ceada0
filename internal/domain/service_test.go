package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/observability"
	"example.com/kaitrack/internal/persistence/memory"
	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

type stubSource struct {
	values []float64
}

func (s *stubSource) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc    *domain.Service
	repo   *memory.Repository
	clock  *clock
	random *stubSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewRepository()
	c := &clock{now: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
	src := &stubSource{}
	svc, err := domain.NewService(repo, domain.Config{
		Random: src,
		Clock:  c.Now,
		Logger: observability.Discard(),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, clock: c, random: src}
}

func (f *fixture) logDay(t *testing.T, user string) *domain.LogWorkoutResult {
	t.Helper()
	res, err := f.svc.LogWorkout(context.Background(), domain.LogWorkoutInput{UserID: user, ActivityName: "Run", Category: "Cardio"})
	require.NoError(t, err)
	return res
}

func TestNewServiceRequiresRandomSource(t *testing.T) {
	_, err := domain.NewService(memory.NewRepository(), domain.Config{})
	require.Error(t, err)
}

func TestLogWorkoutCreatesProfileAndEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.logDay(t, "goku")
	require.Equal(t, "Run", res.Workout.ActivityName)
	require.Equal(t, "cardio", res.Workout.Category)
	require.Equal(t, int64(100), res.Workout.PointsAwarded)
	require.Equal(t, 1, res.Outcome.Progress.CurrentStreakDays)

	profile, err := f.svc.GetOrCreateProfile(ctx, "goku", "ignored")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultUsername, profile.Username)
	require.Equal(t, int64(100), profile.Progress.CumulativeScore)
	require.Equal(t, "Human Form", profile.Progress.CurrentTier)

	published := f.repo.Published()
	require.Len(t, published, 2)
	require.Equal(t, events.TypeWorkoutLogged, published[0].Type)
	require.Equal(t, events.TypeProgressUpdated, published[1].Type)
}

func TestLogWorkoutOncePerDay(t *testing.T) {
	f := newFixture(t)
	f.logDay(t, "goku")

	_, err := f.svc.LogWorkout(context.Background(), domain.LogWorkoutInput{UserID: "goku", ActivityName: "Swim"})
	require.ErrorIs(t, err, domain.ErrWorkoutExists)

	profile, err := f.svc.GetOrCreateProfile(context.Background(), "goku", "")
	require.NoError(t, err)
	require.Equal(t, int64(100), profile.Progress.CumulativeScore, "rejected workout must not change progress")
	require.Len(t, f.repo.Published(), 2)
	update, ok := f.repo.Published()[1].Payload.(events.ProgressUpdated)
	require.True(t, ok)
	require.Equal(t, int64(100), update.BasePoints)
	require.Zero(t, update.RewardPoints)
}

func TestLogWorkoutRejectsOtherDays(t *testing.T) {
	f := newFixture(t)
	yesterday := progression.NewDate(2023, time.December, 31)
	_, err := f.svc.LogWorkout(context.Background(), domain.LogWorkoutInput{UserID: "goku", ActivityName: "Run", Date: &yesterday})
	require.ErrorIs(t, err, domain.ErrNotToday)

	today := progression.NewDate(2024, time.January, 1)
	_, err = f.svc.LogWorkout(context.Background(), domain.LogWorkoutInput{UserID: "goku", ActivityName: "Run", Date: &today})
	require.NoError(t, err)
}

func TestLogWorkoutValidatesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	bad := 0
	_, err = f.svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku", ActivityName: "Run", DurationMinutes: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	res, err := f.svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku", IsRestDay: true})
	require.NoError(t, err)
	require.Equal(t, "Rest Day", res.Workout.ActivityName)
	require.Zero(t, res.Workout.PointsAwarded)
}

func TestWeekOfWorkoutsReachesMilestoneAndTier(t *testing.T) {
	f := newFixture(t)
	var last *domain.LogWorkoutResult
	for i := 0; i < 7; i++ {
		last = f.logDay(t, "vegeta")
		f.clock.advance(24 * time.Hour)
	}
	require.Equal(t, 7, last.Outcome.Progress.CurrentStreakDays)
	require.Equal(t, int64(500), last.Outcome.BonusPoints)
	require.Equal(t, int64(1200), last.Outcome.Progress.CumulativeScore)
	require.True(t, last.Outcome.TierChanged)

	var promoted int
	for _, e := range f.repo.Published() {
		if e.Type == events.TypeTierPromoted {
			promoted++
			payload := e.Payload.(events.TierPromoted)
			require.Equal(t, "Initiate Saiyan", payload.CurrentTier)
		}
	}
	require.Equal(t, 1, promoted)
}

func TestUpdateAndDeleteWorkoutKeepProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.logDay(t, "goku")

	name := "Long Run"
	dur := 45
	updated, err := f.svc.UpdateWorkout(ctx, "goku", res.Workout.ID, domain.UpdateWorkoutInput{ActivityName: &name, DurationMinutes: &dur})
	require.NoError(t, err)
	require.Equal(t, "Long Run", updated.ActivityName)
	require.Equal(t, 45, *updated.DurationMinutes)
	require.Equal(t, res.Workout.PointsAwarded, updated.PointsAwarded)

	_, err = f.svc.UpdateWorkout(ctx, "krillin", res.Workout.ID, domain.UpdateWorkoutInput{ActivityName: &name})
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)

	require.ErrorIs(t, f.svc.DeleteWorkout(ctx, "krillin", res.Workout.ID), domain.ErrWorkoutNotFound)
	require.NoError(t, f.svc.DeleteWorkout(ctx, "goku", res.Workout.ID))

	_, err = f.svc.GetWorkout(ctx, "goku", res.Workout.ID)
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)

	profile, err := f.svc.GetOrCreateProfile(ctx, "goku", "")
	require.NoError(t, err)
	require.Equal(t, int64(100), profile.Progress.CumulativeScore)
}

func TestDeleteThenRelogSameDayIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.logDay(t, "goku")
	require.NoError(t, f.svc.DeleteWorkout(ctx, "goku", res.Workout.ID))
	for i := 0; i < 4; i++ {
		_, err := f.svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku", ActivityName: "Run"})
		require.ErrorIs(t, err, domain.ErrWorkoutExists)
	}

	profile, err := f.svc.GetOrCreateProfile(ctx, "goku", "")
	require.NoError(t, err)
	require.Equal(t, int64(100), profile.Progress.CumulativeScore)
	require.Equal(t, 1, profile.Progress.CurrentStreakDays)

	f.clock.advance(24 * time.Hour)
	res = f.logDay(t, "goku")
	require.Equal(t, int64(200), res.Outcome.Progress.CumulativeScore)
	require.Equal(t, 2, res.Outcome.Progress.CurrentStreakDays)
}

func TestListWorkoutsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.logDay(t, "goku")
		f.clock.advance(24 * time.Hour)
	}

	page, cursor, err := f.svc.ListWorkouts(ctx, "goku", domain.WorkoutQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	require.Equal(t, progression.NewDate(2024, time.January, 5), page[0].Date)

	seen := len(page)
	for cursor != nil {
		page, cursor, err = f.svc.ListWorkouts(ctx, "goku", domain.WorkoutQuery{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		seen += len(page)
	}
	require.Equal(t, 5, seen)

	from := progression.NewDate(2024, time.January, 2)
	to := progression.NewDate(2024, time.January, 3)
	page, _, err = f.svc.ListWorkouts(ctx, "goku", domain.WorkoutQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, page, 2)

	_, _, err = f.svc.ListWorkouts(ctx, "goku", domain.WorkoutQuery{From: &to, To: &from})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Stats(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	// 2024-01-01 is a Monday; week starts Sunday 2023-12-31
	for i := 0; i < 3; i++ {
		f.logDay(t, "goku")
		f.clock.advance(24 * time.Hour)
	}
	f.clock.advance(24 * time.Hour)

	stats, err := f.svc.Stats(ctx, "goku")
	require.NoError(t, err)
	require.Equal(t, 3, stats.WorkoutsThisWeek)
	require.Equal(t, 3, stats.WorkoutsThisMonth)
	require.Equal(t, 3, stats.TotalWorkouts)
	require.Equal(t, progression.StreakWarning, stats.StreakStatus)
	require.Equal(t, 2, stats.DaysSinceLastActivity)
	require.Equal(t, "Initiate Saiyan", stats.TierProgress.Next.Label)
	require.InDelta(t, 300.0/700.0*100, stats.TierProgress.Percent, 0.001)
}

func TestSpinWheelPointsReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.random.values = []float64{0.0}

	res, err := f.svc.SpinWheel(ctx, "goku", "Goku")
	require.NoError(t, err)
	require.Equal(t, reward.CategoryPoints, res.Spin.Reward.Category)
	require.Equal(t, int64(100), res.Profile.Progress.CumulativeScore)
	require.Equal(t, "Goku", res.Profile.Username)
	require.Equal(t, f.clock.now.Add(24*time.Hour), res.NextSpinAt)

	published := f.repo.Published()
	require.Equal(t, events.TypeRewardGranted, published[0].Type)
	require.Equal(t, events.TypeProgressUpdated, published[1].Type)
	update, ok := published[1].Payload.(events.ProgressUpdated)
	require.True(t, ok)
	require.Equal(t, "wheel", update.Cause)
	require.Equal(t, int64(100), update.RewardPoints)
	require.Zero(t, update.BasePoints)
	require.Zero(t, update.BonusPoints)
	require.Zero(t, update.Milestone)
}

func TestSpinWheelCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.WheelStatus(ctx, "goku")
	require.NoError(t, err)
	require.True(t, status.CanSpin)
	require.Nil(t, status.NextSpinAt)

	_, err = f.svc.SpinWheel(ctx, "goku", "")
	require.NoError(t, err)

	f.clock.advance(23 * time.Hour)
	_, err = f.svc.SpinWheel(ctx, "goku", "")
	require.ErrorIs(t, err, domain.ErrSpinNotEligible)
	var cooldown *domain.SpinCooldownError
	require.True(t, errors.As(err, &cooldown))
	require.Equal(t, f.clock.now.Add(time.Hour), cooldown.NextSpinAt)

	status, err = f.svc.WheelStatus(ctx, "goku")
	require.NoError(t, err)
	require.False(t, status.CanSpin)

	f.clock.advance(time.Hour)
	_, err = f.svc.SpinWheel(ctx, "goku", "")
	require.NoError(t, err)
}

func TestSpinWheelCollectsTitlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// total weight 100; 0.915 * 100 = 91.5 lands on "Dragon Warrior" (cumulative 90..93)
	f.random.values = []float64{0.915, 0.915}

	res, err := f.svc.SpinWheel(ctx, "goku", "")
	require.NoError(t, err)
	require.Equal(t, "Dragon Warrior", res.Spin.Reward.Label)
	require.False(t, res.Spin.Duplicate)
	require.Equal(t, []string{"Dragon Warrior"}, res.Profile.Titles)
	require.Zero(t, res.Profile.Progress.CumulativeScore)

	f.clock.advance(24 * time.Hour)
	res, err = f.svc.SpinWheel(ctx, "goku", "")
	require.NoError(t, err)
	require.True(t, res.Spin.Duplicate)
	require.Equal(t, []string{"Dragon Warrior"}, res.Profile.Titles)

	title := "Dragon Warrior"
	profile, err := f.svc.UpdateProfile(ctx, "goku", domain.UpdateProfileInput{EquippedTitle: &title})
	require.NoError(t, err)
	require.Equal(t, "Dragon Warrior", profile.EquippedTitle)
}

func TestSpinWheelCosmetic(t *testing.T) {
	f := newFixture(t)
	// 99.9 falls in the last slot, Divine Energy
	f.random.values = []float64{0.999}

	res, err := f.svc.SpinWheel(context.Background(), "goku", "")
	require.NoError(t, err)
	require.Equal(t, reward.CategoryCosmetic, res.Spin.Reward.Category)
	require.Equal(t, []string{"Divine Energy"}, res.Profile.Cosmetics)
}

func TestUpdateProfileRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateProfile(ctx, "goku", domain.UpdateProfileInput{})
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = f.svc.GetOrCreateProfile(ctx, "goku", "Kakarot")
	require.NoError(t, err)

	skin := "Golden Aura"
	_, err = f.svc.UpdateProfile(ctx, "goku", domain.UpdateProfileInput{EquippedCosmetic: &skin})
	require.ErrorIs(t, err, domain.ErrNotOwned)

	blank := "   "
	_, err = f.svc.UpdateProfile(ctx, "goku", domain.UpdateProfileInput{Username: &blank})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	name := "Son Goku"
	profile, err := f.svc.UpdateProfile(ctx, "goku", domain.UpdateProfileInput{Username: &name})
	require.NoError(t, err)
	require.Equal(t, "Son Goku", profile.Username)
}

func TestRankings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.logDay(t, "a")
	f.logDay(t, "b")
	f.clock.advance(24 * time.Hour)
	f.logDay(t, "b")
	_, err := f.svc.GetOrCreateProfile(ctx, "idle", "")
	require.NoError(t, err)

	global, err := f.svc.Rankings(ctx, domain.RankingQuery{})
	require.NoError(t, err)
	require.Len(t, global, 3)
	require.Equal(t, "b", global[0].UserID)
	require.Equal(t, 1, global[0].Position)
	require.Equal(t, "idle", global[2].UserID)

	asc, err := f.svc.Rankings(ctx, domain.RankingQuery{Sort: domain.SortStreak, Direction: domain.SortAsc})
	require.NoError(t, err)
	require.Equal(t, "idle", asc[0].UserID)

	weekly, err := f.svc.Rankings(ctx, domain.RankingQuery{Period: domain.PeriodWeekly})
	require.NoError(t, err)
	require.Len(t, weekly, 2)

	page2, err := f.svc.Rankings(ctx, domain.RankingQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Equal(t, 3, page2[0].Position)

	_, err = f.svc.Rankings(ctx, domain.RankingQuery{Period: "yearly"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendInteraction(ctx, "goku", "goku", domain.InteractionEnergySalute)
	require.ErrorIs(t, err, domain.ErrSelfInteraction)

	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = f.svc.GetOrCreateProfile(ctx, "vegeta", "")
	require.NoError(t, err)

	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.NoError(t, err)
	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.ErrorIs(t, err, domain.ErrInteractionExists)
	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEncouragementBeam)
	require.NoError(t, err)
	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", "high_five")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	received, err := f.svc.ListInteractions(ctx, "vegeta")
	require.NoError(t, err)
	require.Len(t, received, 2)

	f.clock.advance(25 * time.Hour)
	received, err = f.svc.ListInteractions(ctx, "vegeta")
	require.NoError(t, err)
	require.Empty(t, received)

	_, err = f.svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.NoError(t, err, "a new day allows the same gesture again")
}

func TestSweepLapsedStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.logDay(t, "lapsed")
	f.clock.advance(24 * time.Hour)
	f.logDay(t, "active")
	f.clock.advance(24 * time.Hour)

	n, err := f.svc.SweepLapsedStreaks(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	lapsed, err := f.svc.GetOrCreateProfile(ctx, "lapsed", "")
	require.NoError(t, err)
	require.Zero(t, lapsed.Progress.CurrentStreakDays)
	require.Equal(t, 1, lapsed.Progress.LongestStreakDays)

	active, err := f.svc.GetOrCreateProfile(ctx, "active", "")
	require.NoError(t, err)
	require.Equal(t, 1, active.Progress.CurrentStreakDays)

	res := f.logDay(t, "lapsed")
	require.Equal(t, 1, res.Outcome.Progress.CurrentStreakDays)
}
