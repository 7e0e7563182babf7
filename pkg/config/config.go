// Package config holds the mutable simulator configuration: the single
// trusted relying-party client, per-subject response and error-injection
// settings, and the simulator's own base URL. A *Config is passed
// explicitly to the components that read it; there is no global instance.
package config

import (
	"net/url"
	"os"
	"strings"
	"sync"
)

const defaultClientPublicKey = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAmXXR3EsRvUMVhEJMtQ1w
exJjfQ00Q0MQ7ARfShN53BnOQEPFnS/I8ntBddkKdE3q+vMTI72w6Fv3SsMM+ciR
2LIHdEQfKgsLt6PGNcV1kG6GG/3nSW3psW8w65Q3fmy81P1748qezDrVfaGrF4PD
XALzX1ph+nz8mpKmck6aY6LEUJ4B+TIfYzlKmmwFe3ri0spSW+J5wE9mmT3VkR2y
SuHRYHQlxlF9dfX7ltOTsbgJFzN6TO01ZQDhY0iLwzdGwhSxO6R6N/ZINYHCKFPa
QD+tdKsrw7QDIYnx0IiXFnkGnizl3UtqSmXAaceTvPM2Pz84x2JiwHrp2Sml6RYL
CQIDAQAB
-----END PUBLIC KEY-----
`

// ClientConfiguration describes the one relying-party client the
// simulator trusts.
type ClientConfiguration struct {
	ClientID                      string   `json:"clientId" yaml:"client_id" validate:"required"`
	PublicKey                     string   `json:"publicKey" yaml:"public_key" validate:"required"`
	Scopes                        []string `json:"scopes" yaml:"scopes" validate:"required,min=1"`
	RedirectURLs                  []string `json:"redirectUrls" yaml:"redirect_urls" validate:"required,min=1,dive,uri"`
	PostLogoutRedirectURLs        []string `json:"postLogoutRedirectUrls" yaml:"post_logout_redirect_urls" validate:"dive,uri"`
	Claims                        []string `json:"claims" yaml:"claims"`
	IdentityVerificationSupported bool     `json:"identityVerificationSupported" yaml:"identity_verification_supported"`
	IDTokenSigningAlgorithm       string   `json:"idTokenSigningAlgorithm" yaml:"id_token_signing_algorithm" validate:"oneof=ES256 RS256"`
	ClientLoCs                    []string `json:"clientLoCs" yaml:"client_locs" validate:"required,min=1,dive,oneof=P0 P1 P2"`
}

type Config struct {
	mu           sync.RWMutex
	client       ClientConfiguration
	users        []*UserConfiguration
	simulatorURL string
}

// NewFromEnv builds a Config from environment variables, falling back to
// the well-known simulator defaults for anything unset.
func NewFromEnv() *Config {
	c := &Config{
		client: ClientConfiguration{
			ClientID:               envString("CLIENT_ID", "HGIOgho9HIRhgoepdIOPFdIUWgewi0jw"),
			PublicKey:              envString("PUBLIC_KEY", defaultClientPublicKey),
			Scopes:                 envList("SCOPES", []string{"openid", "email", "phone"}),
			RedirectURLs:           envList("REDIRECT_URLS", []string{"http://localhost:8080/oidc/authorization-code/callback"}),
			PostLogoutRedirectURLs: envList("POST_LOGOUT_REDIRECT_URLS", []string{"http://localhost:8080/signed-out"}),
			Claims: envList("CLAIMS", []string{
				"https://vocab.account.gov.uk/v1/coreIdentityJWT",
				"https://vocab.account.gov.uk/v1/address",
				"https://vocab.account.gov.uk/v1/returnCode",
			}),
			IdentityVerificationSupported: envBool("IDENTITY_VERIFICATION_SUPPORTED", true),
			IDTokenSigningAlgorithm:       envString("ID_TOKEN_SIGNING_ALGORITHM", "ES256"),
			ClientLoCs:                    envList("CLIENT_LOCS", []string{"P0", "P2"}),
		},
		simulatorURL: envString("SIMULATOR_URL", "http://localhost:3000"),
	}
	c.users = append(c.users, newUserConfiguration(envString("SUB", defaultSub)))
	return c
}

// Client returns a snapshot of the trusted client configuration.
func (c *Config) Client() ClientConfiguration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// User resolves the configuration for a subject identifier. An exact
// match wins; a never-seen subject lazily gets a default-populated
// record appended.
func (c *Config) User(sub string) UserConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.userLocked(sub)
}

func (c *Config) userLocked(sub string) *UserConfiguration {
	for _, u := range c.users {
		if u.Response.Sub == sub {
			return u
		}
	}
	u := newUserConfiguration(sub)
	c.users = append(c.users, u)
	return u
}

// DefaultSub is the subject simulated when an authorization request
// does not select one: the first configured user. If every user has
// been deleted, the default user is recreated first, so authorization
// keeps working after a full reset via the config API.
func (c *Config) DefaultSub() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.users) == 0 {
		c.users = append(c.users, newUserConfiguration(envString("SUB", defaultSub)))
	}
	return c.users[0].Response.Sub
}

// Users returns a snapshot of all user configurations.
func (c *Config) Users() []UserConfiguration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	users := make([]UserConfiguration, 0, len(c.users))
	for _, u := range c.users {
		users = append(users, *u)
	}
	return users
}

func (c *Config) DeleteUser(sub string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, u := range c.users {
		if u.Response.Sub == sub {
			c.users = append(c.users[:i], c.users[i+1:]...)
			return
		}
	}
}

func (c *Config) SimulatorURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simulatorURL
}

func (c *Config) SetSimulatorURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulatorURL = u
}

// IssuerValue is the iss claim value of every token the simulator signs.
func (c *Config) IssuerValue() string {
	return c.SimulatorURL() + "/"
}

// ExpectedPrivateKeyJWTAudience is the aud a client assertion must carry.
func (c *Config) ExpectedPrivateKeyJWTAudience() string {
	return c.SimulatorURL() + "/token"
}

func (c *Config) TrustmarkURL() string {
	return c.SimulatorURL() + "/trustmark"
}

// DIDController derives the did:web identifier for the simulator host.
// A port separator must be percent-encoded per the did:web method spec.
func (c *Config) DIDController() string {
	u, err := url.Parse(c.SimulatorURL())
	if err != nil {
		return "did:web:localhost"
	}
	return "did:web:" + strings.ReplaceAll(u.Host, ":", "%3A")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true":
		return true
	case "false":
		return false
	}
	return fallback
}
