package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
)

// Handoff delivers an eligible run to the downstream generation
// collaborator. It is only invoked when the decision is eligible.
type Handoff interface {
	Deliver(ctx context.Context, s *State) error
}

// HandoffDocument is what the generation collaborator consumes.
type HandoffDocument struct {
	RunID    string                    `json:"run_id" yaml:"run_id"`
	Root     string                    `json:"root" yaml:"root"`
	Eligible bool                      `json:"eligible" yaml:"eligible"`
	Decision *evaluator.Decision       `json:"decision" yaml:"decision"`
	Metrics  *analyzer.CodebaseMetrics `json:"metrics" yaml:"metrics"`
}

// NewHandoffDocument builds the document for s.
func NewHandoffDocument(s *State) HandoffDocument {
	return HandoffDocument{
		RunID:    s.RunID(),
		Root:     s.Root(),
		Eligible: s.ReadyForDownstream(),
		Decision: s.Decision(),
		Metrics:  s.Metrics(),
	}
}

// FileHandoff writes the hand-off document to a file. The encoding follows
// the extension: .yaml and .yml produce YAML, anything else JSON.
type FileHandoff struct {
	Path string
}

func (f FileHandoff) Deliver(ctx context.Context, s *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.ReadyForDownstream() {
		return fmt.Errorf("hand-off refused: run %s is not eligible", s.RunID())
	}

	doc := NewHandoffDocument(s)
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode hand-off document: %w", err)
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create hand-off directory: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("write hand-off document: %w", err)
	}
	return nil
}
