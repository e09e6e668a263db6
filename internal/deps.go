package internal

import (
	"bitwise74/phone-verify/internal/service"
)

// Deps is handed to every handler
type Deps struct {
	Issuer *service.Issuer
}
