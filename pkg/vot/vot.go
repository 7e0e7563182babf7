// Package vot implements parsing and evaluation of Vectors of Trust
// as used in authorization requests (RFC 8485 profile with P-levels
// of confidence).
package vot

import (
	"encoding/json"
	"fmt"
	"strings"
)

type LevelOfConfidence string

const (
	LevelNone   LevelOfConfidence = "P0"
	LevelLow    LevelOfConfidence = "P1"
	LevelMedium LevelOfConfidence = "P2"
)

type CredentialTrust string

const (
	CredentialTrustLow    CredentialTrust = "Cl"
	CredentialTrustMedium CredentialTrust = "Cl.Cm"
)

// VectorOfTrust is a single parsed vtr entry, e.g. "Cl.Cm.P2".
type VectorOfTrust struct {
	CredentialTrust   CredentialTrust
	LevelOfConfidence LevelOfConfidence
}

// Default is the vector applied when a request carries no vtr parameter:
// medium credential trust, no identity proofing.
func Default() VectorOfTrust {
	return VectorOfTrust{
		CredentialTrust:   CredentialTrustMedium,
		LevelOfConfidence: LevelNone,
	}
}

// Parse reads the vtr request parameter, a JSON array of vector codes.
// Only the first entry is evaluated.
func Parse(raw string) (VectorOfTrust, error) {
	if raw == "" {
		return Default(), nil
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return VectorOfTrust{}, fmt.Errorf("vtr is not a JSON array of strings: %w", err)
	}
	if len(entries) == 0 {
		return Default(), nil
	}

	return parseEntry(entries[0])
}

func parseEntry(entry string) (VectorOfTrust, error) {
	vector := Default()

	var credentialParts []string
	locSeen := false

	for _, part := range strings.Split(entry, ".") {
		switch part {
		case "Cl", "Cm":
			credentialParts = append(credentialParts, part)
		case string(LevelNone), string(LevelLow), string(LevelMedium):
			if locSeen {
				return VectorOfTrust{}, fmt.Errorf("vtr %q contains more than one level of confidence", entry)
			}
			locSeen = true
			vector.LevelOfConfidence = LevelOfConfidence(part)
		default:
			return VectorOfTrust{}, fmt.Errorf("vtr %q contains unknown component %q", entry, part)
		}
	}

	switch strings.Join(credentialParts, ".") {
	case "":
		vector.CredentialTrust = CredentialTrustMedium
	case string(CredentialTrustLow):
		vector.CredentialTrust = CredentialTrustLow
	case string(CredentialTrustMedium):
		vector.CredentialTrust = CredentialTrustMedium
	default:
		return VectorOfTrust{}, fmt.Errorf("vtr %q contains invalid credential trust components", entry)
	}

	if vector.LevelOfConfidence != LevelNone && vector.CredentialTrust != CredentialTrustMedium {
		return VectorOfTrust{}, fmt.Errorf("vtr %q requests identity proofing without medium credential trust", entry)
	}

	return vector, nil
}

// String returns the canonical vector code. The P0 level is omitted,
// matching how achieved vectors are reported to relying parties.
func (v VectorOfTrust) String() string {
	if v.LevelOfConfidence == LevelNone || v.LevelOfConfidence == "" {
		return string(v.CredentialTrust)
	}
	return string(v.CredentialTrust) + "." + string(v.LevelOfConfidence)
}

// Achieved caps the requested vector by the provider's capability: when
// identity verification is not supported the achieved level of confidence
// drops to P0. Credential trust is always achieved as requested.
func (v VectorOfTrust) Achieved(identityVerificationSupported bool) VectorOfTrust {
	if !identityVerificationSupported {
		v.LevelOfConfidence = LevelNone
	}
	return v
}

// LevelAllowed reports whether the requested level of confidence is a
// member of the client's allowed set.
func LevelAllowed(level LevelOfConfidence, allowed []string) bool {
	for _, a := range allowed {
		if a == string(level) {
			return true
		}
	}
	return false
}
