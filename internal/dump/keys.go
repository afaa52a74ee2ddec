package dump

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"golang.org/x/crypto/pbkdf2"

	"github.com/francishero/agent/internal/backup"
)

const (
	// keySize is 256 bits for AES-256
	keySize = 32

	// pbkdf2Iterations matches the derivation cost used elsewhere in the
	// product; changing it does not affect restores since the key travels
	// wrapped inside the envelope.
	pbkdf2Iterations = 100000

	pbkdf2SaltSize = 32
)

// generateKey returns a fresh random symmetric key
func generateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, backup.NewKeyGenerationError("failed to generate symmetric key", err)
	}
	return key, nil
}

// deriveKey derives a symmetric key from a passphrase with PBKDF2-SHA256.
// The salt is random per attempt; recovery always goes through the wrapped
// key, never through re-derivation.
func deriveKey(passphrase string) ([]byte, error) {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, backup.NewKeyGenerationError("failed to generate key salt", err)
	}
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New), nil
}

// ParsePublicKey decodes a PEM-encoded RSA public key
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, backup.NewKeyGenerationError("public key is not valid PEM", nil)
	}

	// PKIX is the canonical encoding; fall back to PKCS#1 for older keys
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, backup.NewKeyGenerationError("public key is not an RSA key", nil)
		}
		return rsaPub, nil
	}

	rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, backup.NewKeyGenerationError("failed to parse public key", err)
	}
	return rsaPub, nil
}

// wrapKey encrypts the symmetric key under the public key with RSA-OAEP
func wrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, backup.NewKeyGenerationError("failed to wrap symmetric key", err)
	}
	return wrapped, nil
}
