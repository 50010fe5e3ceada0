package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "s3cret", Issuer: "kaitrack-test"}

func TestParseRoundTripsIssuedToken(t *testing.T) {
	token, err := Issue(testConfig, "goku", "Kakarot", []string{ScopeWorkoutsWrite, ScopeWheelSpin}, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "goku", claims.Subject)
	require.Equal(t, "Kakarot", claims.Username)
	require.True(t, claims.HasScope(ScopeWheelSpin))
	require.False(t, claims.HasScope(ScopeRankingsRead))
	require.True(t, claims.HasAnyScope(ScopeRankingsRead, ScopeWorkoutsWrite))
}

func TestParseRejectsBadTokens(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	expired, err := Issue(testConfig, "goku", "", nil, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = Parse(expired, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := Issue(Config{Secret: testConfig.Secret, Issuer: "other"}, "goku", "", nil, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = Parse(wrongIssuer, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongSecret, err := Issue(Config{Secret: "nope", Issuer: testConfig.Issuer}, "goku", "", nil, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = Parse(wrongSecret, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAttachesClaims(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, nil).Wrap(next)

	token, err := Issue(testConfig, "vegeta", "", AllScopes(), time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "vegeta", seen.Subject)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/profile", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "missing bearer token")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}
