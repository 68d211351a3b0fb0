package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// DocumentKey generates the cache key of a fetched service description
func DocumentKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "ontobridge:doc:v1:" + hex.EncodeToString(hash[:])
}

// Document is a fetched RDF description together with the headers needed to parse it
type Document struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// EncodeDocument serializes a document for storage in a Cache
func EncodeDocument(d *Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument reverses EncodeDocument
func DecodeDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}

// New builds the document cache described by cfg. A disabled cache stores nothing.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return NopCache{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// NopCache never holds anything
type NopCache struct{}

func (NopCache) Get(string) ([]byte, bool)               { return nil, false }
func (NopCache) Set(string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(string) error                     { return nil }
func (NopCache) Clear() error                            { return nil }
