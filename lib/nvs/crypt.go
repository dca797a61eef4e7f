package nvs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyDerivationIterations = 100000
	saltSize                = 16
)

// checkPlaintext is sealed into the file header to detect a wrong key.
var checkPlaintext = []byte("aosdb-nvs-key-check")

// encryptor seals and opens log record bodies with AES-256-GCM.
// The nonce is prepended to every ciphertext.
type encryptor struct {
	gcm cipher.AEAD
}

// newEncryptor creates an encryptor for the given config and partition salt.
// It returns nil if encryption is disabled.
func newEncryptor(config EncryptionConfig, salt []byte) (*encryptor, error) {
	if !config.Enabled {
		return nil, nil
	}

	key := config.Key
	if len(key) == 0 {
		if config.Passphrase == "" {
			return nil, errors.New("encryption needs a key or a passphrase")
		}
		key = pbkdf2.Key([]byte(config.Passphrase), salt, keyDerivationIterations, 32, sha256.New)
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (256 bits)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *encryptor) open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:e.gcm.NonceSize()]
	return e.gcm.Open(nil, nonce, ciphertext[e.gcm.NonceSize():], nil)
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}
