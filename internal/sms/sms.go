// Package sms delivers verification messages to phone numbers
package sms

import "context"

// Sender delivers body to an E.164 phone number and returns the provider's
// message identifier
type Sender interface {
	Send(ctx context.Context, phone, body string) (string, error)
}
