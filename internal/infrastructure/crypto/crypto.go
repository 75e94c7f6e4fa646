// Package crypto seals small values, such as audit arguments that carry
// customer names and phone numbers, with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/juju/errors"
)

// Sealer encrypts values bound to a context string. A value sealed under
// one context does not open under another.
type Sealer struct{ aead cipher.AEAD }

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, errors.NotValidf("key length %d (want 32)", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Sealer{aead: a}, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(plaintext []byte, context string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Annotate(err, "nonce")
	}
	out := s.aead.Seal(nonce, nonce, plaintext, []byte(context))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed, context string) ([]byte, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, errors.Annotate(err, "decode sealed value")
	}
	ns := s.aead.NonceSize()
	if len(buf) < ns+s.aead.Overhead() {
		return nil, errors.New("sealed value too short")
	}
	pt, err := s.aead.Open(nil, buf[:ns], buf[ns:], []byte(context))
	if err != nil {
		return nil, errors.Annotate(err, "open sealed value")
	}
	return pt, nil
}
