package usecases

import (
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/fsmgate/internal/internaltypes"
)

// AgentKeys checks the shared key the voice agent presents on each call.
type AgentKeys struct {
	Hash []byte
}

func (a AgentKeys) Verify(key string) error {
	if key == "" || len(a.Hash) == 0 {
		return internaltypes.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.Hash, []byte(key)); err != nil {
		return internaltypes.ErrUnauthorized
	}
	return nil
}

func HashKey(key string) ([]byte, error) {
	if len(key) < 16 {
		return nil, errors.NotValidf("agent key shorter than 16 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return h, errors.Trace(err)
}
