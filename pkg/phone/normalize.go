// Package phone turns free-form phone input into the canonical E.164 form
// used as the partition key of every verification record
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrMissing = errors.New("no phone number provided")
	ErrInvalid = errors.New("invalid phone number provided")
)

// Normalizer parses numbers relative to a default region. An empty region
// only accepts numbers written with a leading +country code.
type Normalizer struct {
	region string
}

func NewNormalizer(defaultRegion string) *Normalizer {
	return &Normalizer{region: strings.ToUpper(strings.TrimSpace(defaultRegion))}
}

// Normalize returns the E.164 form of raw
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissing
	}

	region := n.region
	if region == "" {
		region = "ZZ"
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalid
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
