package progression

// StreakStatus summarises how recently a user trained.
type StreakStatus string

const (
	StreakInactive StreakStatus = "inactive"
	StreakActive   StreakStatus = "active"
	StreakWarning  StreakStatus = "warning"
	StreakBroken   StreakStatus = "broken"
)

// StatusOf classifies progress relative to today: active within a day of the last
// activity, warning at two days, broken beyond that.
func StatusOf(p UserProgress, today Date) (StreakStatus, int) {
	if p.LastActivityDate == nil {
		return StreakInactive, 0
	}
	days := DaysBetween(*p.LastActivityDate, today)
	switch {
	case days <= 1:
		return StreakActive, days
	case days == 2:
		return StreakWarning, days
	default:
		return StreakBroken, days
	}
}

// IsLapsed reports whether the streak can no longer be continued on today.
func IsLapsed(p UserProgress, today Date) bool {
	if p.LastActivityDate == nil {
		return false
	}
	return DaysBetween(*p.LastActivityDate, today) > 1
}
