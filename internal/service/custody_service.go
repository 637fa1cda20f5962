package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"donation-settlement-engine/internal/core/domain"

	"golang.org/x/crypto/pbkdf2"
)

const (
	custodyEnvelopeVersion = "v1"
	custodyKDFIterations   = 100_000
)

// AESCustodyService implements ports.CustodyService using AES-256-GCM.
//
// Envelopes look like "v1:<format>:<hex(nonce||ciphertext)>". The format tag
// recorded at encryption time tells the signer how to re-parse the plaintext
// key, so decryption never falls back to trial parsing.
type AESCustodyService struct {
	key []byte // 32-byte key for AES-256
}

// NewAESCustodyService creates a custody service from a 64-character hex
// master key (32 bytes decoded).
func NewAESCustodyService(hexKey string) (*AESCustodyService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &AESCustodyService{key: key}, nil
}

// NewAESCustodyServiceFromPassphrase derives the 32-byte master key from a
// passphrase and salt via PBKDF2-SHA256.
func NewAESCustodyServiceFromPassphrase(passphrase, salt string) (*AESCustodyService, error) {
	if passphrase == "" || salt == "" {
		return nil, fmt.Errorf("passphrase and salt must both be set")
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(salt), custodyKDFIterations, 32, sha256.New)
	return &AESCustodyService{key: key}, nil
}

// Encrypt seals a raw signing key into a custody envelope.
func (s *AESCustodyService) Encrypt(rawKey string, format domain.KeyFormat) (string, error) {
	if rawKey == "" {
		return "", fmt.Errorf("raw key is empty")
	}

	aesGCM, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(rawKey), []byte(format))
	return fmt.Sprintf("%s:%s:%s", custodyEnvelopeVersion, format, hex.EncodeToString(ciphertext)), nil
}

// Decrypt opens a custody envelope, returning the raw key and its format.
// Tampered ciphertext or a mismatched master key fails closed; callers must
// abort the enclosing operation rather than substitute a key.
func (s *AESCustodyService) Decrypt(envelope string) (string, domain.KeyFormat, error) {
	version, format, payload, err := splitEnvelope(envelope)
	if err != nil {
		return "", "", err
	}
	if version != custodyEnvelopeVersion {
		return "", "", fmt.Errorf("unsupported envelope version %q", version)
	}

	ciphertext, err := hex.DecodeString(payload)
	if err != nil {
		return "", "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	aesGCM, err := s.gcm()
	if err != nil {
		return "", "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	// The format tag is bound as additional data: swapping tags between
	// envelopes fails authentication.
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, []byte(format))
	if err != nil {
		return "", "", fmt.Errorf("decrypting key material: %w", err)
	}

	return string(plaintext), format, nil
}

func (s *AESCustodyService) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}

func splitEnvelope(envelope string) (version string, format domain.KeyFormat, payload string, err error) {
	parts := strings.SplitN(envelope, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed custody envelope")
	}
	switch domain.KeyFormat(parts[1]) {
	case domain.KeyFormatECDSA, domain.KeyFormatED25519:
	default:
		return "", "", "", fmt.Errorf("unknown key format %q", parts[1])
	}
	return parts[0], domain.KeyFormat(parts[1]), parts[2], nil
}
