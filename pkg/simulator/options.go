package simulator

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/govuk-one-login/go-simulator/pkg/config"
	"github.com/govuk-one-login/go-simulator/pkg/keys"
)

type Option func(*Server) error

// WithConfig passes the configuration object the server reads policy
// from. The server never mutates it outside the /config endpoints.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

// WithKeyProvider adopts externally constructed key material.
func WithKeyProvider(p *keys.Provider) Option {
	return func(s *Server) error {
		s.keyProvider = p
		return nil
	}
}

// WithGeneratedKey creates fresh key material matching the configured
// ID token signing algorithm. This is the default when no provider is
// supplied.
func WithGeneratedKey() Option {
	return func(s *Server) error {
		if s.cfg == nil {
			s.cfg = config.NewFromEnv()
		}
		alg := jwa.SignatureAlgorithm(s.cfg.Client().IDTokenSigningAlgorithm)
		provider, err := keys.NewProvider(keys.WithAlgorithm(alg))
		if err != nil {
			return fmt.Errorf("create key material: %w", err)
		}
		s.keyProvider = provider
		return nil
	}
}

// WithKeyFromFile loads the signing key from a JWK file. A missing or
// unreadable key is fatal at startup, never mid-request.
func WithKeyFromFile(path string) Option {
	return func(s *Server) error {
		if s.cfg == nil {
			s.cfg = config.NewFromEnv()
		}
		alg := jwa.SignatureAlgorithm(s.cfg.Client().IDTokenSigningAlgorithm)
		provider, err := keys.NewProvider(keys.WithAlgorithm(alg), keys.WithKeyFromFile(path))
		if err != nil {
			return fmt.Errorf("load key material: %w", err)
		}
		s.keyProvider = provider
		return nil
	}
}

// WithRequestContextStore substitutes the store holding pending
// authorization codes.
func WithRequestContextStore(store RequestContextStore) Option {
	return func(s *Server) error {
		s.contextStore = store
		return nil
	}
}

// WithAccessTokenStore substitutes the issued-token record store.
func WithAccessTokenStore(store AccessTokenStore) Option {
	return func(s *Server) error {
		s.tokenStore = store
		return nil
	}
}
