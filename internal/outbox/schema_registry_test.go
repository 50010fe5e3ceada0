package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaReturnsLatestWhenRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/subjects/reward_events-value/versions/latest", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]int{"id": 11})
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "reward_events-value", rewardGrantedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
}

func TestEnsureSchemaRegistersMissingSubject(t *testing.T) {
	var registered map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, "/subjects/workout_events-value/versions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&registered))
		_ = json.NewEncoder(w).Encode(map[string]int{"id": 3})
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "workout_events-value", workoutLoggedSchema)
	require.NoError(t, err)
	require.Equal(t, 3, id)
	require.Equal(t, "JSON", registered["schemaType"])
	require.Equal(t, workoutLoggedSchema, registered["schema"])
}

func TestEnsureSchemaSurfacesRegistryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "progression_events-tier_promoted-value", tierPromotedSchema)
	require.ErrorContains(t, err, "boom")
}

func TestEnsureSchemaDoesNotRegisterOnLookupFailure(t *testing.T) {
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL+"/").EnsureSchema(context.Background(), "reward_events-value", rewardGrantedSchema)
	require.ErrorContains(t, err, "status 503")
	require.NotErrorIs(t, err, ErrSubjectNotFound)
	require.Zero(t, posts)
}
