package evaluator

import "github.com/efebarandurmaz/archsift/internal/apperr"

// Tier bounds a complexity level. Both bounds are inclusive.
type Tier struct {
	MaxFiles int `json:"max_files" yaml:"max_files"`
	MaxLines int `json:"max_lines" yaml:"max_lines"`
}

// Admits reports whether a codebase of the given size fits inside the tier.
func (t Tier) Admits(files, lines int) bool {
	return files <= t.MaxFiles && lines <= t.MaxLines
}

// Thresholds configures the deterministic pre-classification.
// Anything exceeding the Moderate tier is COMPLEX.
type Thresholds struct {
	Simple           Tier `json:"simple" yaml:"simple"`
	Moderate         Tier `json:"moderate" yaml:"moderate"`
	ModerateEligible bool `json:"moderate_eligible" yaml:"moderate_eligible"`
}

// DefaultThresholds returns 50 files / 5000 lines for SIMPLE and
// 150 files / 20000 lines for MODERATE, with MODERATE eligible.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Simple:           Tier{MaxFiles: 50, MaxLines: 5000},
		Moderate:         Tier{MaxFiles: 150, MaxLines: 20000},
		ModerateEligible: true,
	}
}

// Validate reports misconfigured tiers as configuration errors.
func (t Thresholds) Validate() error {
	switch {
	case t.Simple.MaxFiles <= 0 || t.Simple.MaxLines <= 0:
		return apperr.New(apperr.Configuration, "simple tier bounds must be positive (max_files=%d, max_lines=%d)",
			t.Simple.MaxFiles, t.Simple.MaxLines)
	case t.Moderate.MaxFiles <= 0 || t.Moderate.MaxLines <= 0:
		return apperr.New(apperr.Configuration, "moderate tier bounds must be positive (max_files=%d, max_lines=%d)",
			t.Moderate.MaxFiles, t.Moderate.MaxLines)
	case t.Moderate.MaxFiles < t.Simple.MaxFiles || t.Moderate.MaxLines < t.Simple.MaxLines:
		return apperr.New(apperr.Configuration, "moderate tier bounds must not be below simple tier bounds")
	}
	return nil
}

// Classify maps a codebase size onto a level.
func (t Thresholds) Classify(files, lines int) Level {
	switch {
	case t.Simple.Admits(files, lines):
		return Simple
	case t.Moderate.Admits(files, lines):
		return Moderate
	default:
		return Complex
	}
}

// Eligible is the eligibility of a level. It is monotonic: once a level is
// ineligible every stricter level is too.
func (t Thresholds) Eligible(l Level) bool {
	switch l {
	case Simple:
		return true
	case Moderate:
		return t.ModerateEligible
	default:
		return false
	}
}

// FirstIneligible returns the least strict level that is not eligible.
func (t Thresholds) FirstIneligible() Level {
	if t.ModerateEligible {
		return Complex
	}
	return Moderate
}
