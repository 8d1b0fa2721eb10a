package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/archsift/internal/apperr"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"simple": Simple, " Moderate ": Moderate, "COMPLEX": Complex} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("easy")
	assert.Error(t, err)
}

func TestLevel_JSON(t *testing.T) {
	b, err := json.Marshal(struct{ L Level }{Moderate})
	require.NoError(t, err)
	assert.JSONEq(t, `{"L":"MODERATE"}`, string(b))

	var v struct{ L Level }
	require.NoError(t, json.Unmarshal([]byte(`{"L":"complex"}`), &v))
	assert.Equal(t, Complex, v.L)

	_, err = json.Marshal(Level(7))
	assert.Error(t, err)
}

func TestBands(t *testing.T) {
	assert.Equal(t, 3.9, Simple.Band().Clamp(5))
	assert.Equal(t, 4.0, Moderate.Band().Clamp(1))
	assert.Equal(t, 7.5, Complex.Band().Clamp(7.5))
	for _, l := range []Level{Simple, Moderate, Complex} {
		assert.True(t, l.Band().Contains(l.DefaultScore()), l.String())
	}
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	cases := map[string]func(*Thresholds){
		"zero simple files":     func(th *Thresholds) { th.Simple.MaxFiles = 0 },
		"negative simple lines": func(th *Thresholds) { th.Simple.MaxLines = -1 },
		"zero moderate lines":   func(th *Thresholds) { th.Moderate.MaxLines = 0 },
		"moderate below simple": func(th *Thresholds) { th.Moderate.MaxFiles = 10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			th := DefaultThresholds()
			mutate(&th)
			err := th.Validate()
			assert.True(t, apperr.Is(err, apperr.Configuration), "got %v", err)
		})
	}
}

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, Simple, th.Classify(0, 0))
	assert.Equal(t, Simple, th.Classify(50, 5000))
	assert.Equal(t, Moderate, th.Classify(51, 10))
	assert.Equal(t, Moderate, th.Classify(150, 20000))
	assert.Equal(t, Complex, th.Classify(151, 10))
	assert.Equal(t, Complex, th.Classify(10, 20001))
}

func TestThresholds_Eligible(t *testing.T) {
	th := DefaultThresholds()
	assert.True(t, th.Eligible(Simple))
	assert.True(t, th.Eligible(Moderate))
	assert.False(t, th.Eligible(Complex))
	assert.Equal(t, Complex, th.FirstIneligible())

	th.ModerateEligible = false
	assert.False(t, th.Eligible(Moderate))
	assert.Equal(t, Moderate, th.FirstIneligible())
}
