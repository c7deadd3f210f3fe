package finding

// Severity represents the severity level of a security finding.
// All values are lowercase strings.
type Severity string

const (
	// Critical represents a directly exploitable weakness (unsigned token,
	// reflected origin with credentials).
	Critical Severity = "critical"

	// High represents significant impact requiring prompt fix.
	High Severity = "high"

	// Medium represents moderate impact.
	Medium Severity = "medium"

	// Low represents limited impact.
	Low Severity = "low"

	// Info represents informational findings with no direct security impact.
	Info Severity = "info"
)

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// Max returns the most severe of the given levels, or "" for none.
func Max(levels ...Severity) Severity {
	var out Severity
	for _, s := range levels {
		if s.Score() > out.Score() {
			out = s
		}
	}
	return out
}

// Confidence is how certain a fingerprint is, based on which signal
// produced it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Score orders confidence tiers: high=3, medium=2, low=1.
func (c Confidence) Score() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}
