package tokenstore

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned when a stored value cannot be decrypted,
// which in practice means the encryption key changed since the value
// was written.
var ErrDecrypt = errors.New("cannot decrypt stored token")

// Cipher encrypts and decrypts token fields with a Fernet key. The
// key is process-wide configuration and must stay stable across
// restarts, or previously stored tokens become unreadable.
type Cipher struct {
	key *fernet.Key
}

// NewCipher parses a urlsafe-base64 Fernet key.
func NewCipher(encodedKey string) (*Cipher, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns the Fernet token for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("encrypting token: %w", err)
	}
	return string(token), nil
}

// Decrypt reverses Encrypt. Fails with ErrDecrypt when the value was
// not produced under the current key.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	plaintext := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{c.key})
	if plaintext == nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
