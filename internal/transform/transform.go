package transform

import (
	"sort"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Result describes what a transformation did to each key
type Result struct {
	Payload    map[string]any    `json:"payload"`
	Renamed    map[string]string `json:"renamed,omitempty"`    // original key -> new key
	Unmapped   []string          `json:"unmapped,omitempty"`   // keys passed through unchanged
	Collisions []string          `json:"collisions,omitempty"` // mapped keys dropped because their output key was already taken
}

// Transform rewrites payload keys through an alignment and returns only the new payload
func Transform(payload map[string]any, set model.AlignmentSet, dir model.Direction) map[string]any {
	return Apply(payload, set, dir).Payload
}

// Apply rewrites payload keys through an alignment. Forward maps source URIs onto
// target URIs and Reverse maps target URIs back onto source URIs.
//
// A key matches a mapping when it equals the mapping's URI or that URI's local name.
// Matched keys become the local name of the mapped URI; unmatched keys pass through.
// When several mappings match one key, a confirmed mapping beats an unconfirmed one,
// then higher confidence wins, then the earlier mapping.
//
// Unmapped keys are never dropped: they are placed first and keep their names.
// Mapped keys are then renamed in sorted order; one whose output key is already
// taken is reported in Collisions and left out of the payload.
func Apply(payload map[string]any, set model.AlignmentSet, dir model.Direction) Result {
	idx := newIndex(set, dir)

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := Result{
		Payload: make(map[string]any, len(payload)),
		Renamed: make(map[string]string),
	}

	var mapped []string
	for _, k := range keys {
		to, ok := idx.lookup(k)
		if !ok {
			res.Unmapped = append(res.Unmapped, k)
			res.Payload[k] = payload[k]
			continue
		}
		res.Renamed[k] = model.LocalName(to)
		mapped = append(mapped, k)
	}

	for _, k := range mapped {
		out := res.Renamed[k]
		if _, taken := res.Payload[out]; taken {
			res.Collisions = append(res.Collisions, k)
			continue
		}
		res.Payload[out] = payload[k]
	}

	return res
}

// Resolve returns the counterpart of key with the same preference Apply uses.
// Only mappings of the given kind are considered unless kind is KindUnknown.
func Resolve(set model.AlignmentSet, key string, dir model.Direction, kind model.Kind) (string, bool) {
	if kind != model.KindUnknown {
		filtered := make(model.AlignmentSet, 0, len(set))
		for _, m := range set {
			if m.Kind == kind {
				filtered = append(filtered, m)
			}
		}
		set = filtered
	}
	return newIndex(set, dir).lookup(key)
}

type candidate struct {
	to        string
	confirmed bool
	conf      float64
	order     int
}

// better reports whether c should replace the current best
func (c candidate) better(than candidate) bool {
	if c.confirmed != than.confirmed {
		return c.confirmed
	}
	if c.conf != than.conf {
		return c.conf > than.conf
	}
	return c.order < than.order
}

type index struct {
	exact map[string]candidate
	local map[string]candidate
}

func newIndex(set model.AlignmentSet, dir model.Direction) index {
	idx := index{
		exact: make(map[string]candidate, len(set)),
		local: make(map[string]candidate, len(set)),
	}

	for i, m := range set {
		from, to := m.SourceURI, m.TargetURI
		if dir == model.Reverse {
			from, to = to, from
		}
		if from == "" || to == "" {
			continue
		}

		c := candidate{to: to, confirmed: !m.NeedsConfirmation, conf: m.Confidence, order: i}
		keep(idx.exact, from, c)
		keep(idx.local, model.LocalName(from), c)
	}
	return idx
}

func keep(m map[string]candidate, key string, c candidate) {
	if cur, ok := m[key]; !ok || c.better(cur) {
		m[key] = c
	}
}

// lookup prefers an exact URI match over a local-name match
func (idx index) lookup(key string) (string, bool) {
	if c, ok := idx.exact[key]; ok {
		return c.to, true
	}
	if c, ok := idx.local[key]; ok {
		return c.to, true
	}
	return "", false
}
