package simulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"

	"github.com/govuk-one-login/go-simulator/pkg/vot"
)

// RequestContext captures the parameters of an authorization request at
// code issuance time. It is immutable once stored; the token exchange
// reads and removes it exactly once.
type RequestContext struct {
	Sub         string
	RedirectURI string
	Nonce       string
	Scopes      []string
	Claims      []string
	VTR         vot.VectorOfTrust
}

var (
	ErrCodeNotFound = errors.New("authorization code not found")
	ErrCodeExpired  = errors.New("authorization code expired")
)

// RequestContextStore issues single-use authorization codes bound to a
// request context. Redeem must be atomic: of two concurrent redemptions
// of the same code, exactly one succeeds.
type RequestContextStore interface {
	Issue(rc *RequestContext) (code string, err error)
	Redeem(code string) (*RequestContext, error)
}

// AccessTokenStore records issued access tokens per (client, subject)
// pair. Entries are append-only for the process lifetime.
type AccessTokenStore interface {
	Append(clientID, sub, token string)
	Tokens(clientID, sub string) []string
}

// memoryContextStore backs codes with a one-time nonce service: the
// nonce is the code, so unguessability, single-use redemption and
// time-based expiry all come from the same place. The map carries the
// bound context.
type memoryContextStore struct {
	mu       sync.Mutex
	nonces   nonceutil.NonceService
	contexts map[string]*RequestContext
}

func newMemoryContextStore() (*memoryContextStore, error) {
	nonces := nonceutil.NewNonceService()
	if err := nonces.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize nonce service: %w", err)
	}
	return &memoryContextStore{
		nonces:   nonces,
		contexts: make(map[string]*RequestContext),
	}, nil
}

func (s *memoryContextStore) Issue(rc *RequestContext) (string, error) {
	code, _, err := s.nonces.Get()
	if err != nil {
		return "", fmt.Errorf("mint authorization code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[code] = rc
	return code, nil
}

// Redeem removes the context under the write lock before anything else,
// so a code that fails downstream checks can never be retried.
func (s *memoryContextStore) Redeem(code string) (*RequestContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.contexts[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	delete(s.contexts, code)

	if !s.nonces.Redeem(code) {
		return nil, ErrCodeExpired
	}
	return rc, nil
}

// contains reports whether an unconsumed code is still held. Used by
// tests; not part of the store contract.
func (s *memoryContextStore) contains(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.contexts[code]
	return ok
}

func (s *memoryContextStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

type memoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string][]string
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string][]string)}
}

func tokenStoreKey(clientID, sub string) string {
	return clientID + "." + sub
}

func (s *memoryTokenStore) Append(clientID, sub, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenStoreKey(clientID, sub)
	s.tokens[key] = append(s.tokens[key], token)
}

func (s *memoryTokenStore) Tokens(clientID, sub string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[tokenStoreKey(clientID, sub)]
}
