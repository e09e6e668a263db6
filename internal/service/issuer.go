package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitwise74/phone-verify/internal/sms"
	"bitwise74/phone-verify/internal/store"
	"bitwise74/phone-verify/pkg/otp"
	"bitwise74/phone-verify/pkg/phone"

	"go.uber.org/zap"
)

// CodePlaceholder is replaced with the code in the message template
const CodePlaceholder = "{code}"

// Policy holds the tunables of issuance
type Policy struct {
	MaxAttempts int // versions allowed within RateWindow
	RateWindow  time.Duration
	RecentLimit int           // how many recent versions the limiter sees
	Validity    time.Duration // how long an unverified version stays pending
	Digits      int
	Message     string // must contain CodePlaceholder
}

func (p Policy) validate() error {
	switch {
	case p.MaxAttempts <= 0:
		return errors.New("max attempts must be bigger than 0")
	case p.RateWindow <= 0:
		return errors.New("rate window must be bigger than 0")
	case p.RecentLimit <= 0:
		return errors.New("recent limit must be bigger than 0")
	case p.Validity <= 0:
		return errors.New("validity must be bigger than 0")
	case !strings.Contains(p.Message, CodePlaceholder):
		return fmt.Errorf("message template must contain %v", CodePlaceholder)
	}

	return nil
}

// Issuer handles one "send me a code" request end to end
type Issuer struct {
	normalizer *phone.Normalizer
	repo       store.Repository
	limiter    RateLimiter
	lifecycle  *Lifecycle
	codes      *otp.Generator
	sender     sms.Sender
	policy     Policy
	now        func() time.Time
}

type IssuerOpts struct {
	Normalizer *phone.Normalizer
	Repo       store.Repository
	Sender     sms.Sender
	Policy     Policy
	Now        func() time.Time
}

func NewIssuer(o *IssuerOpts) (*Issuer, error) {
	if o == nil {
		return nil, errors.New("no issuer options provided")
	}

	if o.Normalizer == nil || o.Repo == nil || o.Sender == nil {
		return nil, errors.New("normalizer, repository and sender are required")
	}

	if err := o.Policy.validate(); err != nil {
		return nil, err
	}

	codes, err := otp.NewGenerator(o.Policy.Digits)
	if err != nil {
		return nil, err
	}

	now := o.Now
	if now == nil {
		now = time.Now
	}

	return &Issuer{
		normalizer: o.Normalizer,
		repo:       o.Repo,
		limiter:    RateLimiter{MaxAttempts: o.Policy.MaxAttempts, Window: o.Policy.RateWindow},
		lifecycle:  NewLifecycle(o.Repo, o.Policy.Validity, now),
		codes:      codes,
		sender:     o.Sender,
		policy:     o.Policy,
		now:        now,
	}, nil
}

// Start normalizes rawPhone, applies the rate limit, resolves the current
// version and sends its code. Only the version ID is returned, the code and
// the secret never leave this function.
//
// A delivery failure does not roll anything back: the resolved version is
// still pending, so a retry reuses it and sends the same code.
func (i *Issuer) Start(ctx context.Context, rawPhone string) (string, error) {
	p, err := i.normalizer.Normalize(rawPhone)
	if err != nil {
		return "", err
	}

	recent, err := i.repo.GetRecentVerifications(ctx, p, i.policy.RecentLimit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if !i.limiter.Allow(recent, i.now()) {
		zap.L().Warn("Verification rate limit exceeded", zap.String("phone", p), zap.Int("recent", len(recent)))
		return "", ErrRateLimitExceeded
	}

	current, err := i.lifecycle.ObtainCurrent(ctx, p)
	if err != nil {
		return "", err
	}

	code, err := i.codes.Code(current.SecretKey, current.Version)
	if err != nil {
		return "", err
	}

	messageID, err := i.sender.Send(ctx, p, strings.ReplaceAll(i.policy.Message, CodePlaceholder, code))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	zap.L().Info("Verification code sent",
		zap.String("phone", p),
		zap.Int64("version", current.Version),
		zap.String("messageID", messageID),
	)

	return current.ID, nil
}
