package auth

// OAuth scopes checked by the HTTP handlers.
const (
	ScopeProfileRead       = "profile:read"
	ScopeProfileWrite      = "profile:write"
	ScopeWorkoutsRead      = "workouts:read"
	ScopeWorkoutsWrite     = "workouts:write"
	ScopeWheelSpin         = "wheel:spin"
	ScopeRankingsRead      = "rankings:read"
	ScopeInteractionsWrite = "interactions:write"
)

// AllScopes lists every scope a first-party client is granted.
func AllScopes() []string {
	return []string{
		ScopeProfileRead,
		ScopeProfileWrite,
		ScopeWorkoutsRead,
		ScopeWorkoutsWrite,
		ScopeWheelSpin,
		ScopeRankingsRead,
		ScopeInteractionsWrite,
	}
}
