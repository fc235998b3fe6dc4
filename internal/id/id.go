package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewExternalID returns a fresh 128-bit random token, hex encoded (32
// lowercase characters, no dashes). It is used as a receipt's external_id.
func NewExternalID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NewState returns a random token for the OAuth2 state parameter.
func NewState() string {
	return uuid.NewString()
}
