//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/observability"
	"example.com/kaitrack/internal/progression"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("kaitrack"),
		postgrescontainer.WithUsername("kaitrack"),
		postgrescontainer.WithPassword("kaitrack"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepositoryRespectsUserIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startPostgres(t))

	clock := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	svc, err := domain.NewService(repo, domain.Config{
		Random: fixedSource(0),
		Clock:  func() time.Time { return clock },
		Logger: observability.Discard(),
	})
	require.NoError(t, err)

	res, err := svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku", ActivityName: "Run"})
	require.NoError(t, err)

	stored, err := repo.GetWorkout(ctx, "goku", res.Workout.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, progression.NewDate(2024, time.March, 1), stored.Date)

	other, err := repo.GetWorkout(ctx, "vegeta", res.Workout.ID)
	require.NoError(t, err)
	require.Nil(t, other, "RLS should prevent cross-user access")

	_, err = svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "goku", ActivityName: "Swim"})
	require.ErrorIs(t, err, domain.ErrWorkoutExists)

	profile, err := repo.GetProfile(ctx, "goku")
	require.NoError(t, err)
	require.Equal(t, int64(100), profile.Progress.CumulativeScore)
	require.Equal(t, 1, profile.Progress.CurrentStreakDays)
}

func TestProgressionAcrossDaysAndOutbox(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	repo := NewRepository(pool)

	clock := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	svc, err := domain.NewService(repo, domain.Config{
		Random: fixedSource(0),
		Clock:  func() time.Time { return clock },
		Logger: observability.Discard(),
	})
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		_, err := svc.LogWorkout(ctx, domain.LogWorkoutInput{UserID: "vegeta", ActivityName: "Lift"})
		require.NoError(t, err)
		clock = clock.Add(24 * time.Hour)
	}

	profile, err := repo.GetProfile(ctx, "vegeta")
	require.NoError(t, err)
	require.Equal(t, int64(1200), profile.Progress.CumulativeScore)
	require.Equal(t, "Initiate Saiyan", profile.Progress.CurrentTier)

	spin, err := svc.SpinWheel(ctx, "vegeta", "")
	require.NoError(t, err)
	require.Equal(t, int64(1300), spin.Profile.Progress.CumulativeScore)

	_, err = svc.SpinWheel(ctx, "vegeta", "")
	require.ErrorIs(t, err, domain.ErrSpinNotEligible)

	var tierEvents int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type = 'tier.promoted'`).Scan(&tierEvents))
	require.Equal(t, 1, tierEvents)

	page, cursor, err := repo.ListWorkouts(ctx, "vegeta", domain.WorkoutQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	require.NotNil(t, cursor)
	rest, _, err := repo.ListWorkouts(ctx, "vegeta", domain.WorkoutQuery{Limit: 5, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 2)

	clock = clock.Add(48 * time.Hour)
	n, err := svc.SweepLapsedStreaks(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ranking, err := svc.Rankings(ctx, domain.RankingQuery{})
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	require.Zero(t, ranking[0].CurrentStreak)
}

func TestInteractionsUniquePerDay(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startPostgres(t))
	svc, err := domain.NewService(repo, domain.Config{Random: fixedSource(0), Logger: observability.Discard()})
	require.NoError(t, err)

	_, err = svc.GetOrCreateProfile(ctx, "goku", "Goku")
	require.NoError(t, err)
	_, err = svc.GetOrCreateProfile(ctx, "vegeta", "Vegeta")
	require.NoError(t, err)

	_, err = svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.NoError(t, err)
	_, err = svc.SendInteraction(ctx, "goku", "vegeta", domain.InteractionEnergySalute)
	require.ErrorIs(t, err, domain.ErrInteractionExists)

	received, err := svc.ListInteractions(ctx, "vegeta")
	require.NoError(t, err)
	require.Len(t, received, 1)

	none, err := svc.ListInteractions(ctx, "goku")
	require.NoError(t, err)
	require.Empty(t, none)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_outbox.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
