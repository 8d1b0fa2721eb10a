package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/llmutil"
)

// Judge obtains a qualitative complexity judgment for a bounded textual
// description of a codebase.
type Judge interface {
	Judge(ctx context.Context, brief string) (*Judgment, error)
}

// Judgment is a validated reasoning-service response.
type Judgment struct {
	Level      Level   `json:"complexity_level"`
	Score      float64 `json:"complexity_score"`
	Eligible   bool    `json:"eligible"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`

	// Token usage of the call that produced the judgment, when known.
	InputTokens  int `json:"-"`
	OutputTokens int `json:"-"`
}

// InvalidResponseError reports a reasoning-service response that does not
// have the judgment shape. Malformed output is transient, so it is retried.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string { return "invalid judgment: " + e.Reason }

// Retryable marks malformed responses as worth another attempt.
func (e *InvalidResponseError) Retryable() bool { return true }

func invalid(format string, args ...any) error {
	return &InvalidResponseError{Reason: fmt.Sprintf(format, args...)}
}

// ParseJudgment extracts and strictly validates a judgment from raw model
// output. Thinking tags and markdown fences around the object are tolerated;
// missing or mistyped fields are not.
func ParseJudgment(raw string) (*Judgment, error) {
	obj, err := llmutil.ExtractJSONObject(llmutil.StripThinkingTags(raw))
	if err != nil {
		return nil, invalid("%v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, invalid("decode object: %v", err)
	}

	var j Judgment

	var levelName string
	if err := requireField(fields, "complexity_level", &levelName); err != nil {
		return nil, err
	}
	if j.Level, err = ParseLevel(levelName); err != nil {
		return nil, invalid("%v", err)
	}

	if err := requireField(fields, "complexity_score", &j.Score); err != nil {
		return nil, err
	}
	if j.Score < MinScore || j.Score > MaxScore {
		return nil, invalid("complexity_score %.2f outside [%g, %g]", j.Score, MinScore, MaxScore)
	}

	// "can_use_llm" is accepted as an older name for the eligibility flag.
	eligibleKey := "eligible"
	if _, ok := fields[eligibleKey]; !ok {
		if _, legacy := fields["can_use_llm"]; legacy {
			eligibleKey = "can_use_llm"
		}
	}
	if err := requireField(fields, eligibleKey, &j.Eligible); err != nil {
		return nil, err
	}

	if err := requireField(fields, "reasoning", &j.Reasoning); err != nil {
		return nil, err
	}
	j.Reasoning = strings.TrimSpace(j.Reasoning)
	if j.Reasoning == "" {
		return nil, invalid("reasoning is empty")
	}

	j.Confidence = 1
	if rawConf, ok := fields["confidence"]; ok && string(rawConf) != "null" {
		if err := json.Unmarshal(rawConf, &j.Confidence); err != nil {
			return nil, invalid("field %q: %v", "confidence", err)
		}
		if j.Confidence < 0 || j.Confidence > 1 {
			return nil, invalid("confidence %.2f outside [0, 1]", j.Confidence)
		}
	}

	return &j, nil
}

func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return invalid("missing field %q", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalid("field %q: %v", name, err)
	}
	return nil
}

// LLMJudge asks an llm.Provider for a judgment.
type LLMJudge struct {
	provider   llm.Provider
	model      string
	thresholds Thresholds
	opts       llm.RequestOptions
}

// NewLLMJudge creates a judge over provider. The thresholds are quoted in the
// system prompt so the service calibrates against the same tiers.
func NewLLMJudge(provider llm.Provider, model string, th Thresholds, opts llm.RequestOptions) *LLMJudge {
	opts.JSONMode = true
	return &LLMJudge{provider: provider, model: model, thresholds: th, opts: opts}
}

// Provider returns the provider name.
func (j *LLMJudge) Provider() string { return j.provider.Name() }

// Model returns the configured model identifier.
func (j *LLMJudge) Model() string { return j.model }

// Judge sends the brief and validates the reply.
func (j *LLMJudge) Judge(ctx context.Context, brief string) (*Judgment, error) {
	prompt := llm.NewPrompt(SystemPrompt(j.thresholds), brief)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("llm.prompt_chars", prompt.Chars()))

	opts := j.opts
	resp, err := j.provider.Complete(ctx, prompt, &opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ReasoningService, err, "%s completion failed", j.provider.Name())
	}

	judgment, err := ParseJudgment(resp.Content)
	if err != nil {
		return nil, apperr.Wrap(apperr.ReasoningService, err, "%s returned an unusable response", j.provider.Name())
	}
	judgment.InputTokens = resp.InputTokens
	judgment.OutputTokens = resp.OutputTokens
	return judgment, nil
}
