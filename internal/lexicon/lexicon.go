package lexicon

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTaxonomy []byte

// Synset is one word sense: the lemmas that express it and its more general senses
type Synset struct {
	ID        string   `yaml:"id"`
	Gloss     string   `yaml:"gloss,omitempty"`
	Lemmas    []string `yaml:"lemmas"`
	Hypernyms []string `yaml:"hypernyms,omitempty"`
}

type taxonomyFile struct {
	Synsets []Synset `yaml:"synsets"`
}

// Lexicon is an immutable lexical taxonomy
type Lexicon struct {
	synsets   map[string]*Synset
	senses    map[string][]string       // normalized lemma -> synset ids
	ancestors map[string]map[string]int // synset id -> ancestor id -> hop count (self = 0)
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the embedded taxonomy, parsed once
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Load(bytes.NewReader(defaultTaxonomy))
	})
	return defaultLex, defaultErr
}

// LoadFile reads a taxonomy from a YAML file. An empty path returns Default().
func LoadFile(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML taxonomy. Unknown hypernym references are rejected.
func Load(r io.Reader) (*Lexicon, error) {
	var tf taxonomyFile
	if err := yaml.NewDecoder(r).Decode(&tf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lx := &Lexicon{
		synsets:   make(map[string]*Synset, len(tf.Synsets)),
		senses:    make(map[string][]string),
		ancestors: make(map[string]map[string]int, len(tf.Synsets)),
	}

	for i := range tf.Synsets {
		s := &tf.Synsets[i]
		if s.ID == "" {
			return nil, fmt.Errorf("parse lexicon: synset %d has no id", i)
		}
		if _, dup := lx.synsets[s.ID]; dup {
			return nil, fmt.Errorf("parse lexicon: duplicate synset %q", s.ID)
		}
		lx.synsets[s.ID] = s
		for _, lemma := range s.Lemmas {
			key := Normalize(lemma)
			if key == "" {
				continue
			}
			lx.senses[key] = append(lx.senses[key], s.ID)
		}
	}

	for _, s := range lx.synsets {
		for _, h := range s.Hypernyms {
			if _, ok := lx.synsets[h]; !ok {
				return nil, fmt.Errorf("parse lexicon: synset %q references unknown hypernym %q", s.ID, h)
			}
		}
	}

	for id := range lx.synsets {
		lx.ancestors[id] = lx.walkUp(id)
	}

	return lx, nil
}

// walkUp returns the minimal hop count from id to each of its ancestors (breadth-first)
func (lx *Lexicon) walkUp(id string) map[string]int {
	dist := map[string]int{id: 0}
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, cur := range frontier {
			for _, h := range lx.synsets[cur].Hypernyms {
				if _, seen := dist[h]; seen {
					continue
				}
				dist[h] = dist[cur] + 1
				next = append(next, h)
			}
		}
		frontier = next
	}
	return dist
}

// Normalize folds a word or phrase into lemma form: lower case, words joined by '_'
func Normalize(word string) string {
	fields := strings.FieldsFunc(strings.ToLower(word), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// Len returns the number of synsets
func (lx *Lexicon) Len() int {
	return len(lx.synsets)
}

// nounSuffixes are the inflection rules tried when a word has no sense of its own
var nounSuffixes = []struct{ from, to string }{
	{"ies", "y"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"ses", "s"},
	{"xes", "x"},
	{"zes", "z"},
	{"men", "man"},
	{"s", ""},
}

// Senses returns the synset ids a word belongs to. Plural nouns fall back to their base form.
func (lx *Lexicon) Senses(word string) []string {
	key := Normalize(word)
	if ids, ok := lx.senses[key]; ok {
		return ids
	}
	for _, suf := range nounSuffixes {
		if !strings.HasSuffix(key, suf.from) || len(key) <= len(suf.from) {
			continue
		}
		if ids, ok := lx.senses[strings.TrimSuffix(key, suf.from)+suf.to]; ok {
			return ids
		}
	}
	return nil
}

// PathSimilarity is the best score over all sense pairs of the two words, where a
// pair scores 1/(1+d) and d is the shortest hypernym path through a shared ancestor.
// Words with no known sense, or senses with no shared ancestor, score 0.
func (lx *Lexicon) PathSimilarity(a, b string) float64 {
	sa, sb := lx.Senses(a), lx.Senses(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	best := 0.0
	for _, x := range sa {
		for _, y := range sb {
			d, ok := lx.distance(x, y)
			if !ok {
				continue
			}
			if sim := 1 / (1 + float64(d)); sim > best {
				best = sim
			}
		}
	}
	return best
}

func (lx *Lexicon) distance(x, y string) (int, bool) {
	ax, ay := lx.ancestors[x], lx.ancestors[y]
	if len(ay) < len(ax) {
		ax, ay = ay, ax
	}

	best, found := 0, false
	for id, dx := range ax {
		dy, ok := ay[id]
		if !ok {
			continue
		}
		if d := dx + dy; !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}
