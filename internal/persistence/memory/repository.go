// Package memory provides an in-process domain.Repository for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/progression"
)

type state struct {
	profiles     map[string]domain.Profile
	workouts     map[string]domain.Workout
	spins        []domain.Spin
	interactions []domain.Interaction
	outbox       []events.Envelope
}

func newState() state {
	return state{
		profiles: make(map[string]domain.Profile),
		workouts: make(map[string]domain.Workout),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.profiles {
		out.profiles[k] = v.Clone()
	}
	for k, v := range s.workouts {
		out.workouts[k] = v
	}
	out.spins = append([]domain.Spin(nil), s.spins...)
	out.interactions = append([]domain.Interaction(nil), s.interactions...)
	out.outbox = append([]events.Envelope(nil), s.outbox...)
	return out
}

// Repository keeps every table in maps guarded by one lock. WithinUser holds the write
// lock for the whole callback and restores a snapshot when the callback fails.
type Repository struct {
	mu    sync.RWMutex
	state state
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{state: newState()}
}

// WithinUser implements domain.Repository.
func (r *Repository) WithinUser(ctx context.Context, userID string, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(ctx, &unitOfWork{st: &r.state, userID: userID}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

// GetProfile implements domain.Repository.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.state.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := p.Clone()
	return &out, nil
}

// GetWorkout implements domain.Repository.
func (r *Repository) GetWorkout(ctx context.Context, userID, workoutID string) (*domain.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.state.workouts[workoutID]
	if !ok || w.UserID != userID {
		return nil, nil
	}
	return &w, nil
}

func inRange(d progression.Date, from, to *progression.Date) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

// ListWorkouts implements domain.Repository. Results are ordered by date then ID, descending.
func (r *Repository) ListWorkouts(ctx context.Context, userID string, query domain.WorkoutQuery) ([]domain.Workout, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.Workout, 0)
	for _, w := range r.state.workouts {
		if w.UserID != userID || !inRange(w.Date, query.From, query.To) {
			continue
		}
		if c := query.Cursor; c != nil {
			if w.Date.After(c.Date) || (w.Date == c.Date && w.ID >= c.ID) {
				continue
			}
		}
		matches = append(matches, w)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Date != matches[j].Date {
			return matches[i].Date.After(matches[j].Date)
		}
		return matches[i].ID > matches[j].ID
	})

	if len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}
	var next *domain.Cursor
	if len(matches) == query.Limit && query.Limit > 0 {
		last := matches[len(matches)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return matches, next, nil
}

// CountWorkouts implements domain.Repository.
func (r *Repository) CountWorkouts(ctx context.Context, userID string, from, to *progression.Date) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, w := range r.state.workouts {
		if w.UserID == userID && inRange(w.Date, from, to) {
			n++
		}
	}
	return n, nil
}

func lastSpin(st *state, userID string) *domain.Spin {
	var latest *domain.Spin
	for i := range st.spins {
		s := st.spins[i]
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.SpunAt.After(latest.SpunAt) {
			latest = &s
		}
	}
	return latest
}

// LastSpin implements domain.Repository.
func (r *Repository) LastSpin(ctx context.Context, userID string) (*domain.Spin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lastSpin(&r.state, userID), nil
}

// Rankings implements domain.Repository.
func (r *Repository) Rankings(ctx context.Context, query domain.RankingQuery) ([]domain.RankingEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]domain.Profile, 0, len(r.state.profiles))
	for _, p := range r.state.profiles {
		if query.ActiveSince != nil {
			last := p.Progress.LastActivityDate
			if last == nil || last.Before(*query.ActiveSince) {
				continue
			}
		}
		rows = append(rows, p)
	}

	key := func(p domain.Profile) int64 {
		if query.Sort == domain.SortStreak {
			return int64(p.Progress.CurrentStreakDays)
		}
		return p.Progress.CumulativeScore
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := key(rows[i]), key(rows[j])
		if a != b {
			if query.Direction == domain.SortAsc {
				return a < b
			}
			return a > b
		}
		return rows[i].UserID < rows[j].UserID
	})

	start := query.Offset()
	if start >= len(rows) {
		return []domain.RankingEntry{}, nil
	}
	end := start + query.PageSize
	if end > len(rows) {
		end = len(rows)
	}

	out := make([]domain.RankingEntry, 0, end-start)
	for _, p := range rows[start:end] {
		out = append(out, domain.RankingEntry{
			UserID:           p.UserID,
			Username:         p.Username,
			Score:            p.Progress.CumulativeScore,
			CurrentTier:      p.Progress.CurrentTier,
			CurrentStreak:    p.Progress.CurrentStreakDays,
			LongestStreak:    p.Progress.LongestStreakDays,
			EquippedTitle:    p.EquippedTitle,
			EquippedCosmetic: p.EquippedCosmetic,
		})
	}
	return out, nil
}

// ListInteractions implements domain.Repository.
func (r *Repository) ListInteractions(ctx context.Context, receiverID string, since time.Time) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Interaction, 0)
	for _, i := range r.state.interactions {
		if i.ReceiverID == receiverID && !i.CreatedAt.Before(since) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// ResetLapsedStreaks implements domain.Repository.
func (r *Repository) ResetLapsedStreaks(ctx context.Context, cutoff progression.Date) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reset []string
	for id, p := range r.state.profiles {
		last := p.Progress.LastActivityDate
		if last == nil || p.Progress.CurrentStreakDays == 0 || !last.Before(cutoff) {
			continue
		}
		p.Progress.CurrentStreakDays = 0
		r.state.profiles[id] = p
		reset = append(reset, id)
	}
	sort.Strings(reset)
	return reset, nil
}

// Published returns every event written through the outbox, oldest first.
func (r *Repository) Published() []events.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]events.Envelope(nil), r.state.outbox...)
}

type unitOfWork struct {
	st     *state
	userID string
}

func (u *unitOfWork) LockProfile(ctx context.Context) (*domain.Profile, error) {
	p, ok := u.st.profiles[u.userID]
	if !ok {
		return nil, nil
	}
	out := p.Clone()
	return &out, nil
}

func (u *unitOfWork) CreateProfile(ctx context.Context, profile domain.Profile) error {
	profile.UserID = u.userID
	u.st.profiles[u.userID] = profile.Clone()
	return nil
}

func (u *unitOfWork) SaveProfile(ctx context.Context, profile domain.Profile) error {
	existing, ok := u.st.profiles[u.userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	// the collection is owned by GrantTitle and GrantCosmetic
	next := profile.Clone()
	next.UserID = u.userID
	next.Titles = existing.Titles
	next.Cosmetics = existing.Cosmetics
	u.st.profiles[u.userID] = next
	return nil
}

func (u *unitOfWork) grant(list []string, label string) []string {
	for _, l := range list {
		if strings.EqualFold(l, label) {
			return list
		}
	}
	return append(list, label)
}

func (u *unitOfWork) GrantTitle(ctx context.Context, label string, at time.Time) error {
	p, ok := u.st.profiles[u.userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Titles = u.grant(append([]string(nil), p.Titles...), label)
	u.st.profiles[u.userID] = p
	return nil
}

func (u *unitOfWork) GrantCosmetic(ctx context.Context, label string, at time.Time) error {
	p, ok := u.st.profiles[u.userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Cosmetics = u.grant(append([]string(nil), p.Cosmetics...), label)
	u.st.profiles[u.userID] = p
	return nil
}

func (u *unitOfWork) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	w, ok := u.st.workouts[workoutID]
	if !ok || w.UserID != u.userID {
		return nil, nil
	}
	return &w, nil
}

func (u *unitOfWork) InsertWorkout(ctx context.Context, workout domain.Workout) error {
	for _, w := range u.st.workouts {
		if w.UserID == workout.UserID && w.Date == workout.Date {
			return domain.ErrWorkoutExists
		}
	}
	u.st.workouts[workout.ID] = workout
	return nil
}

func (u *unitOfWork) UpdateWorkout(ctx context.Context, workout domain.Workout) error {
	existing, ok := u.st.workouts[workout.ID]
	if !ok || existing.UserID != u.userID {
		return domain.ErrWorkoutNotFound
	}
	u.st.workouts[workout.ID] = workout
	return nil
}

func (u *unitOfWork) DeleteWorkout(ctx context.Context, workoutID string) error {
	existing, ok := u.st.workouts[workoutID]
	if !ok || existing.UserID != u.userID {
		return domain.ErrWorkoutNotFound
	}
	delete(u.st.workouts, workoutID)
	return nil
}

func (u *unitOfWork) LastSpin(ctx context.Context) (*domain.Spin, error) {
	return lastSpin(u.st, u.userID), nil
}

func (u *unitOfWork) InsertSpin(ctx context.Context, spin domain.Spin) error {
	u.st.spins = append(u.st.spins, spin)
	return nil
}

func (u *unitOfWork) ProfileExists(ctx context.Context, userID string) (bool, error) {
	_, ok := u.st.profiles[userID]
	return ok, nil
}

func (u *unitOfWork) InsertInteraction(ctx context.Context, interaction domain.Interaction) error {
	for _, i := range u.st.interactions {
		if i.SenderID == interaction.SenderID && i.ReceiverID == interaction.ReceiverID &&
			i.Type == interaction.Type && i.Day == interaction.Day {
			return domain.ErrInteractionExists
		}
	}
	u.st.interactions = append(u.st.interactions, interaction)
	return nil
}

func (u *unitOfWork) Publish(ctx context.Context, envelopes ...events.Envelope) error {
	u.st.outbox = append(u.st.outbox, envelopes...)
	return nil
}
