package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Review writes reviewer notes for a set of pending mappings
	Review(ctx context.Context, req ReviewRequest) (*ReviewResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ReviewRequest contains the input for a mapping review
type ReviewRequest struct {
	ServiceURL string
	Mappings   model.AlignmentSet

	// AllowedIRIs is the allowlist of IRIs the notes may mention when strict mode is on
	AllowedIRIs []string

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// ReviewResponse contains the provider's notes
type ReviewResponse struct {
	Notes      string
	CitedIRIs  []string // IRIs found in Notes, for verification
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string // Custom endpoint, e.g. a local Ollama

	Timeout int // seconds

	// StrictIRIs rejects notes that mention IRIs outside the reviewed mappings
	StrictIRIs bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "", // Disabled
		Timeout:    30,
		StrictIRIs: true,
		MaxTokens:  800,
	}
}

const systemPrompt = "You assist a human who confirms ontology mappings. You never change confidence values and only discuss the IRIs you are given."

// BuildPrompt constructs the default review prompt
func BuildPrompt(serviceURL string, mappings model.AlignmentSet, allowed []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are reviewing candidate mappings between a client ontology and the ontology of the service at %s.
Each mapping was scored automatically and fell below the confirmation threshold.

RULES:
1. You MUST ONLY mention IRIs from this list:
%s

2. Do not invent properties, classes or namespaces.
3. For each mapping say briefly whether the two concepts plausibly mean the same thing and why.
4. Never restate or adjust the confidence numbers.

Mappings:
`, serviceURL, joinIRIs(allowed))

	for i, m := range mappings {
		if i >= maxPromptMappings {
			fmt.Fprintf(&b, "... and %d more mappings\n", len(mappings)-maxPromptMappings)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s -> %s (confidence %.2f)\n", m.Kind, m.SourceURI, m.TargetURI, m.Confidence)
	}

	b.WriteString("\nAnswer with a short markdown list, one item per mapping.")
	return b.String()
}

const maxPromptMappings = 30

// AllowedIRIs lists every IRI referenced by the mappings, in first-seen order
func AllowedIRIs(mappings model.AlignmentSet) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range mappings {
		for _, iri := range []string{m.SourceURI, m.TargetURI} {
			if iri != "" && !seen[iri] {
				seen[iri] = true
				out = append(out, iri)
			}
		}
	}
	return out
}

func joinIRIs(iris []string) string {
	if len(iris) == 0 {
		return "(No IRIs available)"
	}
	var b strings.Builder
	for i, iri := range iris {
		if i >= 2*maxPromptMappings {
			fmt.Fprintf(&b, "\n... and %d more IRIs", len(iris)-i)
			break
		}
		fmt.Fprintf(&b, "\n- %s", iri)
	}
	return b.String()
}

var iriPattern = regexp.MustCompile(`(?:https?://|urn:)[^\s<>"'` + "`" + `\)\]]+`)

// extractIRIs returns the distinct IRIs mentioned in text
func extractIRIs(text string) []string {
	matches := iriPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, iri := range matches {
		iri = strings.TrimRight(iri, ".,;:!?*")
		if !seen[iri] {
			seen[iri] = true
			unique = append(unique, iri)
		}
	}
	return unique
}

// checkCitations enforces the IRI allowlist
func checkCitations(strict bool, cited, allowed []string) error {
	if !strict {
		return nil
	}
	permitted := make(map[string]bool, len(allowed))
	for _, iri := range allowed {
		permitted[iri] = true
	}
	for _, iri := range cited {
		if !permitted[iri] {
			return fmt.Errorf("IRI LEAK: LLM mentioned disallowed IRI: %s", iri)
		}
	}
	return nil
}

func resolveModel(req ReviewRequest, config Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if config.Model != "" {
		return config.Model
	}
	return fallback
}

func resolveMaxTokens(req ReviewRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 800
}

func resolvePrompt(req ReviewRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.ServiceURL, req.Mappings, req.AllowedIRIs)
}
