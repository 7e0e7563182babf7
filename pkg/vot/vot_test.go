package vot

import "testing"

func TestParseDefaults(t *testing.T) {
	for _, raw := range []string{"", "[]"} {
		v, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", raw, err)
		}
		if v.CredentialTrust != CredentialTrustMedium || v.LevelOfConfidence != LevelNone {
			t.Errorf("Parse(%q) = %+v, want default Cl.Cm / P0", raw, v)
		}
	}
}

func TestParseFullVector(t *testing.T) {
	v, err := Parse(`["Cl.Cm.P2"]`)
	if err != nil {
		t.Fatal(err)
	}
	if v.CredentialTrust != CredentialTrustMedium {
		t.Errorf("credential trust = %q, want Cl.Cm", v.CredentialTrust)
	}
	if v.LevelOfConfidence != LevelMedium {
		t.Errorf("level of confidence = %q, want P2", v.LevelOfConfidence)
	}
	if got := v.String(); got != "Cl.Cm.P2" {
		t.Errorf("String() = %q, want Cl.Cm.P2", got)
	}
}

func TestParseOnlyFirstEntryCounts(t *testing.T) {
	v, err := Parse(`["Cl.Cm.P0","Cl.Cm.P2"]`)
	if err != nil {
		t.Fatal(err)
	}
	if v.LevelOfConfidence != LevelNone {
		t.Errorf("level of confidence = %q, want P0 from first entry", v.LevelOfConfidence)
	}
}

func TestParseRejectsMalformedVectors(t *testing.T) {
	for _, raw := range []string{
		`not-json`,
		`["Cl.Cm.P4"]`,
		`["Cl.Cm.P1.P2"]`,
		`["Cl.P2"]`,
		`["Cx.Cm"]`,
	} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", raw)
		}
	}
}

func TestAchievedCappedWithoutIdentityVerification(t *testing.T) {
	requested, err := Parse(`["Cl.Cm.P2"]`)
	if err != nil {
		t.Fatal(err)
	}

	achieved := requested.Achieved(false)
	if achieved.LevelOfConfidence != LevelNone {
		t.Errorf("achieved level = %q, want P0 when identity verification is off", achieved.LevelOfConfidence)
	}
	if achieved.String() != "Cl.Cm" {
		t.Errorf("achieved vector = %q, want Cl.Cm", achieved.String())
	}

	achieved = requested.Achieved(true)
	if achieved.LevelOfConfidence != LevelMedium {
		t.Errorf("achieved level = %q, want P2 when identity verification is on", achieved.LevelOfConfidence)
	}
}

func TestLevelAllowed(t *testing.T) {
	allowed := []string{"P0", "P2"}
	if !LevelAllowed(LevelMedium, allowed) {
		t.Error("P2 should be allowed")
	}
	if LevelAllowed(LevelLow, allowed) {
		t.Error("P1 should not be allowed")
	}
}
