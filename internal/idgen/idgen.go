// Package idgen provides run identifiers backed by nanoid and edit tokens
// backed by random UUIDs.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for run IDs. It is URL-safe and
// avoids '#', which separates key components in storage.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

// Length is the number of random characters in a run ID.
var Length = 21

// Generate returns a new unique run ID.
func Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// Token returns a new edit token: a random (version 4) UUID string.
func Token() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("idgen: token: %w", err)
	}
	return u.String(), nil
}
