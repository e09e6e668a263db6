// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n bytes read from the system CSPRNG
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes, %w", err)
	}

	return b, nil
}
