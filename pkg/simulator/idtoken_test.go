package simulator

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestCorruptSignatureStaysWellFormed(t *testing.T) {
	for _, sig := range []string{
		"MEUCIQDx1vY2abc",
		"aba", // reversal is a no-op, the fallback must still change it
		"AAAA",
		"BAB",
	} {
		compact := "eyJhbGciOiJFUzI1NiJ9.eyJzdWIiOiJ4In0." + sig
		corrupted := corruptSignature(compact)

		if corrupted == compact {
			t.Errorf("signature %q not changed", sig)
		}
		parts := strings.Split(corrupted, ".")
		if len(parts) != 3 {
			t.Fatalf("corrupted serialization has %d segments", len(parts))
		}
		if parts[0] != "eyJhbGciOiJFUzI1NiJ9" || parts[1] != "eyJzdWIiOiJ4In0" {
			t.Errorf("header or payload changed for signature %q", sig)
		}
		if _, err := base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
			t.Errorf("corrupted signature %q is not valid base64url: %v", parts[2], err)
		}
	}
}
