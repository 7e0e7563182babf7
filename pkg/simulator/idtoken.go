package simulator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/segmentio/ksuid"

	"github.com/govuk-one-login/go-simulator/pkg/config"
	"github.com/govuk-one-login/go-simulator/pkg/vot"
)

const (
	idTokenValidity      = 2 * time.Minute
	coreIdentityValidity = 3 * time.Hour

	claimCoreIdentity = "https://vocab.account.gov.uk/v1/coreIdentityJWT"
	claimReturnCode   = "https://vocab.account.gov.uk/v1/returnCode"
)

// buildIDToken assembles and signs the identity assertion for a
// redeemed request context, applying the subject's configured ID-token
// error injection. Injection never fails the exchange; it only makes
// the assertion wrong in exactly the configured way.
func (s *Server) buildIDToken(rc *RequestContext, client config.ClientConfiguration, user config.UserConfiguration) (string, error) {
	now := time.Now()
	injected := user.Error.IDTokenErrors

	issuer := s.cfg.IssuerValue()
	if hasIDTokenError(injected, config.IDTokenInvalidIss) {
		issuer = "https://wrong.issuer.example.com/"
	}
	audience := client.ClientID
	if hasIDTokenError(injected, config.IDTokenInvalidAud) {
		audience = "wrong-audience-" + ksuid.New().String()
	}
	nonce := rc.Nonce
	if hasIDTokenError(injected, config.IDTokenNonceNotMatching) {
		nonce = ksuid.New().String()
	}
	vector := rc.VTR.String()
	if hasIDTokenError(injected, config.IDTokenIncorrectVot) {
		vector = incorrectVector(rc.VTR)
	}

	issuedAt, expiry := now, now.Add(idTokenValidity)
	if hasIDTokenError(injected, config.IDTokenExpired) {
		issuedAt, expiry = now.Add(-2*idTokenValidity), now.Add(-idTokenValidity)
	}
	if hasIDTokenError(injected, config.IDTokenNotValidYet) {
		issuedAt, expiry = now.Add(idTokenValidity), now.Add(2*idTokenValidity)
	}

	builder := jwt.NewBuilder().
		Issuer(issuer).
		Subject(rc.Sub).
		Audience([]string{audience}).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(expiry).
		Claim("nonce", nonce).
		Claim("vot", vector).
		Claim("vtm", s.cfg.TrustmarkURL()).
		Claim("auth_time", issuedAt.Unix()).
		Claim("sid", ksuid.New().String())

	if contains(rc.Scopes, "email") && user.Response.EmailVerified {
		builder = builder.
			Claim("email", user.Response.Email).
			Claim("email_verified", user.Response.EmailVerified)
	}
	if contains(rc.Scopes, "phone") && user.Response.PhoneNumberVerified {
		builder = builder.
			Claim("phone_number", user.Response.PhoneNumber).
			Claim("phone_number_verified", user.Response.PhoneNumberVerified)
	}

	if client.IdentityVerificationSupported && contains(rc.Claims, claimCoreIdentity) {
		credential, err := s.buildCoreIdentityJWT(rc, client, user)
		if err != nil {
			return "", fmt.Errorf("build core identity credential: %w", err)
		}
		builder = builder.Claim(claimCoreIdentity, credential)
	}

	if contains(rc.Claims, claimReturnCode) && len(user.Response.ReturnCodes) > 0 {
		builder = builder.Claim(claimReturnCode, user.Response.ReturnCodes)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("assemble id token: %w", err)
	}

	signed, err := s.keyProvider.Sign(token, jwa.SignatureAlgorithm(client.IDTokenSigningAlgorithm))
	if err != nil {
		return "", err
	}

	if hasIDTokenError(injected, config.IDTokenInvalidAlgHeader) {
		signed, err = rewriteAlgHeader(signed, "HS256")
		if err != nil {
			return "", err
		}
	}
	if hasIDTokenError(injected, config.IDTokenInvalidSignature) {
		signed = corruptSignature(signed)
	}
	return signed, nil
}

// buildCoreIdentityJWT signs the nested verifiable-credential JWT
// carried inside the ID token, applying the subject's credential-stage
// error injection.
func (s *Server) buildCoreIdentityJWT(rc *RequestContext, client config.ClientConfiguration, user config.UserConfiguration) (string, error) {
	now := time.Now()
	injected := user.Error.CoreIdentityErrors

	issuer := s.cfg.DIDController()
	if hasCoreIdentityError(injected, config.CoreIdentityInvalidIss) {
		issuer = "did:web:wrong.issuer.example.com"
	}
	audience := client.ClientID
	if hasCoreIdentityError(injected, config.CoreIdentityInvalidAud) {
		audience = "wrong-audience-" + ksuid.New().String()
	}
	sub := rc.Sub
	if hasCoreIdentityError(injected, config.CoreIdentityIncorrectSub) {
		sub = "urn:fdc:gov.uk:2022:" + ksuid.New().String()
	}

	issuedAt, expiry := now, now.Add(coreIdentityValidity)
	if hasCoreIdentityError(injected, config.CoreIdentityExpired) {
		issuedAt, expiry = now.Add(-2*coreIdentityValidity), now.Add(-coreIdentityValidity)
	}

	level := user.Response.MaxLoCAchieved
	if level == "" {
		level = string(rc.VTR.LevelOfConfidence)
	}

	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(sub).
		Audience([]string{audience}).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(expiry).
		Claim("vot", level).
		Claim("vtm", s.cfg.TrustmarkURL()).
		Claim("vc", user.Response.CoreIdentityVerifiableCredentials).
		Build()
	if err != nil {
		return "", fmt.Errorf("assemble credential: %w", err)
	}

	signed, err := s.keyProvider.Sign(token, s.keyProvider.Algorithm())
	if err != nil {
		return "", err
	}

	if hasCoreIdentityError(injected, config.CoreIdentityInvalidAlgHeader) {
		signed, err = rewriteAlgHeader(signed, "HS256")
		if err != nil {
			return "", err
		}
	}
	if hasCoreIdentityError(injected, config.CoreIdentityInvalidSignature) {
		signed = corruptSignature(signed)
	}
	return signed, nil
}

func hasIDTokenError(injected []config.IDTokenError, e config.IDTokenError) bool {
	for _, i := range injected {
		if i == e {
			return true
		}
	}
	return false
}

func hasCoreIdentityError(injected []config.CoreIdentityError, e config.CoreIdentityError) bool {
	for _, i := range injected {
		if i == e {
			return true
		}
	}
	return false
}

// incorrectVector picks a vector code guaranteed not to match the one
// actually achieved.
func incorrectVector(achieved vot.VectorOfTrust) string {
	if achieved.LevelOfConfidence == vot.LevelMedium {
		return "Cl.Cm"
	}
	return "Cl.Cm.P2"
}

// corruptSignature makes the signature segment fail verification while
// keeping the compact serialization well-formed.
func corruptSignature(compact string) string {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return compact
	}
	sig := []byte(parts[2])
	for i, j := 0, len(sig)-1; i < j; i, j = i+1, j-1 {
		sig[i], sig[j] = sig[j], sig[i]
	}
	if string(sig) == parts[2] {
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

// rewriteAlgHeader re-encodes the protected header with a different alg
// value, invalidating the signature as a side effect.
func rewriteAlgHeader(compact string, alg string) (string, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed compact serialization")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode protected header: %w", err)
	}
	var header map[string]any
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", fmt.Errorf("parse protected header: %w", err)
	}
	header["alg"] = alg
	rewritten, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("encode protected header: %w", err)
	}
	parts[0] = base64.RawURLEncoding.EncodeToString(rewritten)
	return strings.Join(parts, "."), nil
}
