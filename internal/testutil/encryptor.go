package testutil

import (
	"pstalker/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor for tests.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
