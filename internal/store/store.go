package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/cache"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/util"
)

const (
	filePrefix = "alignment_"
	fileSuffix = ".json"
)

// ErrInvalidID is returned for service ids that cannot name a file
var ErrInvalidID = errors.New("invalid service id")

// Store persists one alignment set per service
type Store interface {
	Save(id string, set model.AlignmentSet) error
	Load(id string) (model.AlignmentSet, bool, error)
}

// ServiceID derives the stable identity of a remote service from its base URL.
// Surrounding whitespace and trailing slashes do not change the id.
func ServiceID(serviceURL string) string {
	normalized := strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// FileStore keeps each service alignment in its own JSON file, with an in-memory read layer.
// Callers always receive copies.
type FileStore struct {
	dir    string
	memory *cache.MemoryCache
	logger *zap.Logger
}

// NewFileStore creates the alignments directory if needed
func NewFileStore(dir string, memoryTTL time.Duration, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create alignments dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		memory: cache.NewMemoryCache(memoryTTL, 10*time.Minute),
		logger: logger,
	}, nil
}

// Dir returns the alignments directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file holding the alignment of a service
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

// Save replaces the stored alignment of a service atomically
func (s *FileStore) Save(id string, set model.AlignmentSet) error {
	if err := validateID(id); err != nil {
		return err
	}
	if set == nil {
		set = model.AlignmentSet{}
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alignment: %w", err)
	}

	if err := util.WriteFileAtomic(s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("save alignment %s: %w", id, err)
	}
	_ = s.memory.Set(id, data, 0)

	s.logger.Debug("alignment saved",
		zap.String("service_id", id),
		zap.Int("mappings", len(set)))
	return nil
}

// Load returns the stored alignment of a service. An unknown id is reported
// with found=false and a nil error.
func (s *FileStore) Load(id string) (model.AlignmentSet, bool, error) {
	if err := validateID(id); err != nil {
		return nil, false, err
	}

	data, ok := s.memory.Get(id)
	if !ok {
		var err error
		data, err = os.ReadFile(s.Path(id))
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read alignment %s: %w", id, err)
		}
		_ = s.memory.Set(id, data, 0)
	}

	var set model.AlignmentSet
	if err := json.Unmarshal(data, &set); err != nil {
		_ = s.memory.Delete(id)
		return nil, false, fmt.Errorf("decode alignment %s: %w", id, err)
	}
	if set == nil {
		set = model.AlignmentSet{}
	}
	return set, true, nil
}

// List returns the ids of every stored service, sorted
func (s *FileStore) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
