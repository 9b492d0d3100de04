package credentials

import (
	"fmt"
	"strings"
	"sync"

	"voiceink/internal/domain"
)

// Store is an in-memory API key store keyed by provider name.
type Store struct {
	mu   sync.RWMutex
	keys map[domain.ModelProvider]string
}

func NewStore(keys map[domain.ModelProvider]string) *Store {
	s := &Store{keys: make(map[domain.ModelProvider]string, len(keys))}
	for provider, key := range keys {
		s.Set(provider, key)
	}
	return s
}

// Set stores key for provider. An empty key removes it.
func (s *Store) Set(provider domain.ModelProvider, key string) {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		delete(s.keys, provider)
		return
	}
	s.keys[provider] = key
}

func (s *Store) APIKey(provider domain.ModelProvider) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[provider]
	if !ok {
		return "", fmt.Errorf("%w for %s", domain.ErrMissingCredential, provider)
	}
	return key, nil
}
