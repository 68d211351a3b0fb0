package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Reviewer attaches LLM notes to alignments that need human confirmation.
// Notes are advisory; mappings and confidences pass through untouched.
type Reviewer struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewReviewer builds a reviewer. A config without a provider yields a disabled reviewer.
func NewReviewer(config Config, logger *zap.Logger) (*Reviewer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{provider: provider, config: config, logger: logger}, nil
}

// IsEnabled reports whether a provider is configured
func (r *Reviewer) IsEnabled() bool {
	return r != nil && r.provider != nil
}

// ProviderName returns the configured provider or ""
func (r *Reviewer) ProviderName() string {
	if !r.IsEnabled() {
		return ""
	}
	return r.provider.Name()
}

// Review writes notes for the pending mappings of set.
// It returns nil when disabled or when nothing is pending; provider failures become warnings.
func (r *Reviewer) Review(ctx context.Context, serviceURL string, set model.AlignmentSet) (*model.ReviewNote, error) {
	if !r.IsEnabled() {
		return nil, nil
	}

	pending := set.Pending()
	if len(pending) == 0 {
		return nil, nil
	}

	note := &model.ReviewNote{
		Provider:   r.provider.Name(),
		Model:      r.config.Model,
		StrictIRIs: r.config.StrictIRIs,
	}

	if !r.provider.IsAvailable(ctx) {
		r.logger.Warn("review provider unavailable", zap.String("provider", note.Provider))
		note.Warnings = append(note.Warnings, fmt.Sprintf("LLM provider '%s' is not available", note.Provider))
		return note, nil
	}
	note.Enabled = true

	allowed := AllowedIRIs(pending)
	resp, err := r.provider.Review(ctx, ReviewRequest{
		ServiceURL:  serviceURL,
		Mappings:    pending,
		AllowedIRIs: allowed,
		Model:       r.config.Model,
		MaxTokens:   r.config.MaxTokens,
	})
	if err != nil {
		r.logger.Warn("review failed", zap.String("provider", note.Provider), zap.Error(err))
		note.Warnings = append(note.Warnings, fmt.Sprintf("Review generation failed: %v", err))
		return note, nil
	}

	if resp.Model != "" {
		note.Model = resp.Model
	}
	note.NotesMD = resp.Notes
	note.Warnings = append(note.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d IRI citations against %d allowed", len(resp.CitedIRIs), len(allowed)),
	)

	r.logger.Debug("review complete",
		zap.String("provider", note.Provider),
		zap.Int("pending", len(pending)),
		zap.Int("tokens", resp.TokensUsed))

	return note, nil
}

// RenderMarkdown formats a review note as a standalone document
func RenderMarkdown(note *model.ReviewNote) string {
	if note == nil || !note.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Mapping Review\n\n")
	b.WriteString("> GENERATED CONTENT. Confidence values and confirmation status are determined independently of this review.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", note.Provider)
	if note.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", note.Model)
	}
	fmt.Fprintf(&b, "- **Strict IRI Mode**: %t\n\n", note.StrictIRIs)

	if note.NotesMD == "" {
		b.WriteString("_No review generated._\n")
	} else {
		b.WriteString(note.NotesMD)
		b.WriteString("\n")
	}

	if len(note.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range note.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
