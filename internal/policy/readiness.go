package policy

// Readiness classifies how complete a student's portfolio is.
type Readiness string

const (
	ReadinessHigh   Readiness = "high"
	ReadinessMedium Readiness = "medium"
	ReadinessLow    Readiness = "low"
)

// Readiness thresholds.
const (
	HighReadinessMinAchievements   = 8
	HighReadinessMinVerified       = 3
	MediumReadinessMinAchievements = 4
)

// Valid reports whether r is a known level.
func (r Readiness) Valid() bool {
	return r == ReadinessHigh || r == ReadinessMedium || r == ReadinessLow
}

// ClassifyReadiness derives readiness from achievement and verified counts.
func ClassifyReadiness(achievements, verified int64) Readiness {
	switch {
	case achievements >= HighReadinessMinAchievements && verified >= HighReadinessMinVerified:
		return ReadinessHigh
	case achievements >= MediumReadinessMinAchievements:
		return ReadinessMedium
	default:
		return ReadinessLow
	}
}
