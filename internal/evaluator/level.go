package evaluator

import (
	"fmt"
	"strings"
)

// Level is a complexity tier. Levels are ordered: a higher Level is stricter.
type Level int

const (
	Simple Level = iota
	Moderate
	Complex
)

var levelNames = [...]string{"SIMPLE", "MODERATE", "COMPLEX"}

func (l Level) String() string {
	if l < Simple || l > Complex {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the three defined tiers.
func (l Level) Valid() bool { return l >= Simple && l <= Complex }

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid complexity level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name, case-insensitively.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLevel parses "simple", "MODERATE", etc.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return Simple, fmt.Errorf("unknown complexity level %q", s)
}

// Band is the closed score interval associated with a level.
type Band struct {
	Min, Max float64
}

// Scores are on a 0-10 scale.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

var bands = [...]Band{
	Simple:   {Min: 0, Max: 3.9},
	Moderate: {Min: 4, Max: 6.9},
	Complex:  {Min: 7, Max: 10},
}

var defaultScores = [...]float64{Simple: 3, Moderate: 5, Complex: 8}

// Band returns the score band for l.
func (l Level) Band() Band { return bands[l] }

// DefaultScore is the score assigned when no external score is available.
func (l Level) DefaultScore() float64 { return defaultScores[l] }

// Clamp moves score into the band.
func (b Band) Clamp(score float64) float64 {
	if score < b.Min {
		return b.Min
	}
	if score > b.Max {
		return b.Max
	}
	return score
}

// Contains reports whether score lies inside the band.
func (b Band) Contains(score float64) bool { return score >= b.Min && score <= b.Max }

func maxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}
