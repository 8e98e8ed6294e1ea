// Package payload builds structured QR payloads.
package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var ErrMissingField = errors.New("missing required field")

// OTPAuth is a TOTP enrolment payload for authenticator apps.
type OTPAuth struct {
	Issuer  string
	Account string
	Digits  int  // 6 or 8, zero means 6
	Period  uint // seconds, zero means 30
}

// Enrollment holds a freshly generated TOTP key.
type Enrollment struct {
	URI    string
	Secret string
}

// Generate creates a new random secret and the otpauth:// URI that carries it.
func (o OTPAuth) Generate() (*Enrollment, error) {
	issuer, account := strings.TrimSpace(o.Issuer), strings.TrimSpace(o.Account)
	if issuer == "" {
		return nil, fmt.Errorf("%w: issuer", ErrMissingField)
	}
	if account == "" {
		return nil, fmt.Errorf("%w: account", ErrMissingField)
	}
	digits := otp.DigitsSix
	switch o.Digits {
	case 0, 6:
	case 8:
		digits = otp.DigitsEight
	default:
		return nil, fmt.Errorf("unsupported digit count %d", o.Digits)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      o.Period,
		Digits:      digits,
	})
	if err != nil {
		return nil, err
	}
	return &Enrollment{URI: key.URL(), Secret: key.Secret()}, nil
}
