// Package keys owns the simulator's signing key material: one active
// asymmetric key pair with a declared algorithm, a publishable public
// key set, and the signing operation used for every token the
// simulator issues.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// SigningError reports a failed signing operation, usually an algorithm
// the held key type cannot serve.
type SigningError struct {
	Alg jwa.SignatureAlgorithm
	Err error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing with %s: %s", e.Alg, e.Err)
	}
	return fmt.Sprintf("signing with %s: algorithm not supported by held key", e.Alg)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Provider holds the active key pair. It is immutable after
// construction; the public key set is derived once and stable across
// calls.
type Provider struct {
	alg        jwa.SignatureAlgorithm
	privateKey jwk.Key
	publicKey  jwk.Key
	publicSet  jwk.Set
}

type Option func(*Provider) error

func NewProvider(opts ...Option) (*Provider, error) {
	p := &Provider{alg: jwa.ES256}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.privateKey == nil {
		if err := WithGeneratedKey()(p); err != nil {
			return nil, err
		}
	}

	publicKey, err := p.privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	p.publicKey = publicKey
	p.publicSet = jwk.NewSet()
	p.publicSet.AddKey(publicKey)

	return p, nil
}

// WithAlgorithm sets the declared signing algorithm. Must precede
// WithGeneratedKey to influence the generated key type.
func WithAlgorithm(alg jwa.SignatureAlgorithm) Option {
	return func(p *Provider) error {
		switch alg {
		case jwa.ES256, jwa.RS256:
			p.alg = alg
			return nil
		}
		return fmt.Errorf("unsupported signing algorithm: %s", alg)
	}
}

// WithGeneratedKey generates a fresh key pair matching the declared
// algorithm.
func WithGeneratedKey() Option {
	return func(p *Provider) error {
		var raw any
		var err error
		switch p.alg {
		case jwa.RS256:
			raw, err = rsa.GenerateKey(rand.Reader, 2048)
		default:
			raw, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		}
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}

		key, err := jwk.FromRaw(raw)
		if err != nil {
			return fmt.Errorf("wrap generated key: %w", err)
		}
		return WithKey(key)(p)
	}
}

// WithKeyFromFile loads a private key from a JWK file.
func WithKeyFromFile(path string) Option {
	return func(p *Provider) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read key file '%s': %w", path, err)
		}
		key, err := jwk.ParseKey(data)
		if err != nil {
			return fmt.Errorf("parse key file '%s': %w", path, err)
		}
		return WithKey(key)(p)
	}
}

// WithKey adopts an existing private key, stamping kid, use and alg.
func WithKey(key jwk.Key) Option {
	return func(p *Provider) error {
		thumbprint, err := key.Thumbprint(crypto.SHA256)
		if err != nil {
			return fmt.Errorf("compute key thumbprint: %w", err)
		}
		key.Set(jwk.KeyIDKey, base64.RawURLEncoding.EncodeToString(thumbprint))
		key.Set(jwk.KeyUsageKey, "sig")
		key.Set(jwk.AlgorithmKey, p.alg)

		p.privateKey = key
		slog.Debug("using signing key", "kid", key.KeyID(), "alg", p.alg)
		return nil
	}
}

// Algorithm returns the declared signing algorithm.
func (p *Provider) Algorithm() jwa.SignatureAlgorithm { return p.alg }

// PublicKey returns the public half of the active key pair.
func (p *Provider) PublicKey() jwk.Key { return p.publicKey }

// PublicKeySet returns the publishable key set. The returned set is
// shared; callers must not mutate it.
func (p *Provider) PublicKeySet() jwk.Set { return p.publicSet }

// Sign produces a compact serialization of the token, signed with the
// requested algorithm. Requesting an algorithm the held key type cannot
// serve yields a *SigningError.
func (p *Provider) Sign(token jwt.Token, alg jwa.SignatureAlgorithm) (string, error) {
	if !p.supports(alg) {
		return "", &SigningError{Alg: alg}
	}
	signed, err := jwt.Sign(token, jwt.WithKey(alg, p.privateKey))
	if err != nil {
		return "", &SigningError{Alg: alg, Err: err}
	}
	return string(signed), nil
}

func (p *Provider) supports(alg jwa.SignatureAlgorithm) bool {
	switch p.privateKey.KeyType() {
	case jwa.EC:
		return alg == jwa.ES256 || alg == jwa.ES384 || alg == jwa.ES512
	case jwa.RSA:
		return alg == jwa.RS256 || alg == jwa.RS384 || alg == jwa.RS512 || alg == jwa.PS256
	}
	return false
}
