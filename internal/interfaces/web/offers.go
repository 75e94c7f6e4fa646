package web

import (
	"time"

	"github.com/gorilla/securecookie"
	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/internaltypes"
)

const offerName = "fsmgate_offer"

// Offer is the set of slots quoted to the agent for one job type.
type Offer struct {
	JobTypeID int64               `json:"jobTypeId"`
	Slots     []availability.Slot `json:"slots"`
}

// OfferSigner issues and checks offer tokens, so create-job can insist on a
// slot that was actually quoted.
type OfferSigner struct{ sc *securecookie.SecureCookie }

func NewOfferSigner(hashKey, blockKey []byte, ttl time.Duration) *OfferSigner {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl / time.Second))
	sc.MaxLength(0)
	return &OfferSigner{sc: sc}
}

func (s *OfferSigner) Sign(o Offer) (string, error) {
	tok, err := s.sc.Encode(offerName, o)
	return tok, errors.Annotate(err, "sign offer")
}

func (s *OfferSigner) Verify(token string) (Offer, error) {
	var o Offer
	if err := s.sc.Decode(offerName, token, &o); err != nil {
		return Offer{}, internaltypes.New(internaltypes.KindValidation, "offer_token is invalid or expired")
	}
	return o, nil
}
