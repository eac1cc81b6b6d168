package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

var readRandom = rand.Read

func newID() string {
	return uuid.NewString()
}

// newShareLinkID returns 128 random bits, hex encoded.
func newShareLinkID() (string, error) {
	buf := make([]byte, 16)
	if _, err := readRandom(buf); err != nil {
		return "", fmt.Errorf("generate share link: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
