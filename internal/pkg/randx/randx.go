/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate fixed-length invite codes drawn from the uppercase
Base36 alphabet, and standard UUID message IDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// InviteCodeChars defines the character set used for invite codes (A-Z, 0-9).
	InviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// InviteCodeCharsLen is the total number of characters in the invite code character set (36).
	InviteCodeCharsLen = int64(len(InviteCodeChars))

	// InviteCodeLength is the fixed length required for a generated invite code.
	InviteCodeLength = 6
)

// InviteCode generates an invite code using a cryptographically secure random
// number generator (crypto/rand), one uniform draw per character.
// It returns a string of length InviteCodeLength and any error encountered.
//
// The 36^6 code space leaves collisions possible; the caller is responsible for
// enforcing uniqueness against the registry before persisting.
func InviteCode() (string, error) {
	result := make([]byte, InviteCodeLength)

	for i := range InviteCodeLength {
		num, err := rand.Int(rand.Reader, big.NewInt(InviteCodeCharsLen))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for invite code: %v", err)
		}

		result[i] = InviteCodeChars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a broadcast event.
func MessageID() string {
	return uuid.New().String()
}

// IsValidInviteCode checks if the given string is a well-formed invite code.
// Validity criteria include: length equals InviteCodeLength and all characters
// belong to the InviteCodeChars set.
func IsValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(InviteCodeChars, char) {
			return false
		}
	}

	return true
}
