package invoice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DocumentStore keeps the uploaded document bytes. Keys are generated by the
// store on Put and are opaque to callers.
type DocumentStore interface {
	Put(ctx context.Context, fileName string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type storedDocument struct {
	content     []byte
	contentType string
}

// InMemoryDocumentStore holds documents in process memory. Used in tests and
// when no bucket is configured.
type InMemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]storedDocument
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{documents: map[string]storedDocument{}}
}

func (s *InMemoryDocumentStore) Put(ctx context.Context, fileName string, content []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uuid.NewString()
	stored := make([]byte, len(content))
	copy(stored, content)
	s.documents[key] = storedDocument{content: stored, contentType: contentType}
	return key, nil
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[key]
	if !ok {
		return nil, fmt.Errorf("document %s not found", key)
	}
	return doc.content, nil
}

func (s *InMemoryDocumentStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, key)
	return nil
}

func (s *InMemoryDocumentStore) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[key]; !ok {
		return "", fmt.Errorf("document %s not found", key)
	}
	return "memory://" + key, nil
}

// Contains reports whether a document is stored under the key.
func (s *InMemoryDocumentStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.documents[key]
	return ok
}

// Size returns the number of stored documents.
func (s *InMemoryDocumentStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
