package align

import "github.com/ppiankov/ontobridge/internal/model"

// Merge combines two sets keyed by (source_uri, target_uri). On a collision the
// higher confidence wins and ties keep the entry from a. Output follows first-seen key order.
func Merge(a, b model.AlignmentSet) model.AlignmentSet {
	out := make(model.AlignmentSet, 0, len(a)+len(b))
	pos := make(map[model.MappingKey]int, len(a)+len(b))

	for _, set := range []model.AlignmentSet{a, b} {
		for _, m := range set {
			i, ok := pos[m.Key()]
			if !ok {
				pos[m.Key()] = len(out)
				out = append(out, m)
				continue
			}
			if m.Confidence > out[i].Confidence {
				out[i] = m
			}
		}
	}

	return out
}
