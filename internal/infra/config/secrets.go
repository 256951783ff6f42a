package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"semanticheck/internal/domain"
)

// EncryptedPrefix marks a config value that must be decrypted at load time.
const EncryptedPrefix = "enc:"

// decryptSecrets replaces every "enc:..." secret in cfg with its plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	type secret struct {
		label string
		value *string
	}
	var secrets []secret
	for i := range cfg.LLM.Providers {
		secrets = append(secrets, secret{
			label: "provider " + cfg.LLM.Providers[i].Name + " api_key",
			value: &cfg.LLM.Providers[i].APIKey,
		})
	}
	secrets = append(secrets, secret{label: "embedding api_key", value: &cfg.Embedding.APIKey})
	for i := range cfg.Gateway.Auth.Tokens {
		secrets = append(secrets, secret{
			label: "gateway auth token " + cfg.Gateway.Auth.Tokens[i].Name,
			value: &cfg.Gateway.Auth.Tokens[i].Token,
		})
	}

	for _, s := range secrets {
		if !strings.HasPrefix(*s.value, EncryptedPrefix) {
			continue
		}
		plain, err := DecryptValue(strings.TrimPrefix(*s.value, EncryptedPrefix), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", s.label, err)
		}
		*s.value = plain
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
// The result is hex(salt) + ":" + hex(nonce+ciphertext), without the "enc:" prefix.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %v", domain.ErrEncryption, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create gcm: %v", domain.ErrEncryption, err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}
