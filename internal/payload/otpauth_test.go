package payload

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPAuthGenerate(t *testing.T) {
	e, err := OTPAuth{Issuer: "text2qr", Account: "alice@example.com"}.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, e.Secret)

	key, err := otp.NewKeyFromURL(e.URI)
	require.NoError(t, err)
	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, "text2qr", key.Issuer())
	assert.Equal(t, "alice@example.com", key.AccountName())
	assert.Equal(t, e.Secret, key.Secret())

	code, err := totp.GenerateCode(e.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, totp.Validate(code, e.Secret))
}

func TestOTPAuthEightDigits(t *testing.T) {
	e, err := OTPAuth{Issuer: "x", Account: "y", Digits: 8, Period: 60}.Generate()
	require.NoError(t, err)
	assert.Contains(t, e.URI, "digits=8")
	assert.Contains(t, e.URI, "period=60")
}

func TestOTPAuthValidation(t *testing.T) {
	_, err := OTPAuth{Account: "y"}.Generate()
	assert.True(t, errors.Is(err, ErrMissingField))
	_, err = OTPAuth{Issuer: "x", Account: "  "}.Generate()
	assert.True(t, errors.Is(err, ErrMissingField))
	_, err = OTPAuth{Issuer: "x", Account: "y", Digits: 7}.Generate()
	assert.Error(t, err)
}
