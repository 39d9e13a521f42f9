package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

// InviteCodeAlphabet excludes ambiguous characters (0/O, 1/I/L) so codes can
// be read aloud or retyped without confusion.
const InviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// InviteCodeLength is the fixed length of group invite codes.
const InviteCodeLength = 6

// GenerateInviteCode creates a random invite code from the unambiguous alphabet.
func GenerateInviteCode() string {
	var b strings.Builder
	b.Grow(InviteCodeLength)
	max := big.NewInt(int64(len(InviteCodeAlphabet)))
	for i := 0; i < InviteCodeLength; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is effectively unheard of; degrade to a
			// time-derived index rather than panicking.
			v = big.NewInt(time.Now().UnixNano() % int64(len(InviteCodeAlphabet)))
		}
		b.WriteByte(InviteCodeAlphabet[v.Int64()])
	}
	return b.String()
}

// NormalizeInviteCode uppercases and trims a user-supplied code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
