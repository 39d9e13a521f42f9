package utils

import (
	"strings"
	"testing"
)

func TestGenerateInviteCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateInviteCode()
		if len(code) != InviteCodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), InviteCodeLength)
		}
		for _, ch := range code {
			if !strings.ContainsRune(InviteCodeAlphabet, ch) {
				t.Fatalf("code %q contains %q, not in alphabet", code, ch)
			}
		}
	}
}

func TestInviteCodeAlphabetExcludesAmbiguous(t *testing.T) {
	for _, ch := range "0O1IL" {
		if strings.ContainsRune(InviteCodeAlphabet, ch) {
			t.Errorf("alphabet must not contain ambiguous char %q", ch)
		}
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	if got := NormalizeInviteCode("  ab2c3d \n"); got != "AB2C3D" {
		t.Errorf("NormalizeInviteCode = %q, want AB2C3D", got)
	}
}
