// Package otp derives the one-time codes sent to phone numbers
package otp

import (
	"encoding/base32"
	"errors"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	MinDigits = 6
	MaxDigits = 8
)

var ErrInvalidDigits = fmt.Errorf("code length must be between %d and %d digits", MinDigits, MaxDigits)

// Generator computes RFC 4226 codes (HMAC-SHA1, dynamic truncation).
// It holds no state besides the configured length, so the same key and
// counter always produce the same code.
type Generator struct {
	digits otp.Digits
}

func NewGenerator(digits int) (*Generator, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, ErrInvalidDigits
	}

	return &Generator{digits: otp.Digits(digits)}, nil
}

// Code returns the code for secret at counter
func (g *Generator) Code(secret []byte, counter int64) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("no secret key provided")
	}

	if counter < 0 {
		return "", errors.New("counter can't be negative")
	}

	key := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)

	code, err := hotp.GenerateCodeCustom(key, uint64(counter), hotp.ValidateOpts{
		Digits:    g.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code, %w", err)
	}

	return code, nil
}
