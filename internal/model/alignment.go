package model

import (
	"fmt"
	"strings"
)

// DefaultConfidenceThreshold is the score below which a mapping needs human review
const DefaultConfidenceThreshold = 0.7

// CandidateMapping is a proposed correspondence between a source and a target concept.
// The JSON shape is the on-disk format of persisted alignments.
type CandidateMapping struct {
	SourceURI         string  `json:"source_uri"`
	TargetURI         string  `json:"target_uri"`
	Confidence        float64 `json:"confidence"`
	Kind              Kind    `json:"type"`
	NeedsConfirmation bool    `json:"needs_confirmation"` // Snapshot at creation time, never recomputed
}

// NewMapping builds a mapping and flags it against the given threshold
func NewMapping(source, target string, confidence float64, kind Kind, threshold float64) CandidateMapping {
	if kind == "" {
		kind = KindUnknown
	}
	return CandidateMapping{
		SourceURI:         source,
		TargetURI:         target,
		Confidence:        confidence,
		Kind:              kind,
		NeedsConfirmation: confidence < threshold,
	}
}

// Key identifies a mapping by its (source, target) pair
func (m CandidateMapping) Key() MappingKey {
	return MappingKey{Source: m.SourceURI, Target: m.TargetURI}
}

// MappingKey is the identity used when merging alignment sets
type MappingKey struct {
	Source string
	Target string
}

// AlignmentSet is an ordered list of mappings between one source and one target ontology.
// Several mappings may share a source URI.
type AlignmentSet []CandidateMapping

// Clone returns a copy that shares no backing array with s
func (s AlignmentSet) Clone() AlignmentSet {
	if s == nil {
		return nil
	}
	out := make(AlignmentSet, len(s))
	copy(out, s)
	return out
}

// Pending returns the mappings that still need human confirmation
func (s AlignmentSet) Pending() AlignmentSet {
	var out AlignmentSet
	for _, m := range s {
		if m.NeedsConfirmation {
			out = append(out, m)
		}
	}
	return out
}

// NeedsConfirmation reports whether any mapping in the set is flagged
func (s AlignmentSet) NeedsConfirmation() bool {
	for _, m := range s {
		if m.NeedsConfirmation {
			return true
		}
	}
	return false
}

// Method selects the alignment strategy
type Method string

const (
	MethodCustom   Method = "custom"   // Similarity cross-product
	MethodAPI      Method = "api"      // External alignment tool
	MethodCombined Method = "combined" // custom + api, merged
	MethodSeed     Method = "seed"     // Configured seed table only
)

// ParseMethod validates a method name. Empty input selects MethodCombined.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodCombined, nil
	case MethodCustom, MethodAPI, MethodCombined, MethodSeed:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: custom, api, combined, seed)", ErrUnknownMethod, s)
	}
}

// Direction selects which side of an alignment a payload is expressed in
type Direction int

const (
	Forward Direction = iota // source vocabulary -> target vocabulary
	Reverse                  // target vocabulary -> source vocabulary
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// ParseDirection accepts "forward" / "reverse" (case-insensitive). Empty input means Forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward", "fwd":
		return Forward, nil
	case "reverse", "rev", "backward":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("unknown direction: %q (supported: forward, reverse)", s)
	}
}

// AlignmentStatus reports whether a service alignment is ready for use
type AlignmentStatus string

const (
	StatusAligned           AlignmentStatus = "aligned"
	StatusNeedsConfirmation AlignmentStatus = "needs_confirmation"
)

// ServiceAlignment is an alignment set persisted for one remote service
type ServiceAlignment struct {
	ServiceID  string          `json:"service_id"`
	ServiceURL string          `json:"service_url,omitempty"`
	Status     AlignmentStatus `json:"status"`
	Alignments AlignmentSet    `json:"alignments"`
	Cached     bool            `json:"cached"`           // Loaded from the store rather than freshly computed
	Review     *ReviewNote     `json:"review,omitempty"` // Optional LLM reviewer notes
}

// StatusOf derives the status from the flags in a set
func StatusOf(set AlignmentSet) AlignmentStatus {
	if set.NeedsConfirmation() {
		return StatusNeedsConfirmation
	}
	return StatusAligned
}

// ReviewNote contains optional LLM-written guidance for a human reviewer.
// It never changes a confidence value.
type ReviewNote struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	StrictIRIs bool     `json:"strict_iris"`        // Whether IRI allowlisting was enforced
	NotesMD    string   `json:"notes_md,omitempty"` // Markdown review notes
	Warnings   []string `json:"warnings,omitempty"` // Any issues (e.g., provider unavailable)
}
