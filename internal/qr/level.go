package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Level is the error-correction level of a symbol.
type Level int

const (
	Low     Level = iota // L, ~7% recovery
	Medium               // M, ~15% recovery
	High                 // Q, ~25% recovery
	Highest              // H, ~30% recovery
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Highest:
		return "highest"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Letter returns the single-letter name used by the QR standard.
func (l Level) Letter() string {
	switch l {
	case Low:
		return "L"
	case Medium:
		return "M"
	case High:
		return "Q"
	case Highest:
		return "H"
	}
	return "?"
}

func (l Level) valid() bool { return l >= Low && l <= Highest }

func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case Low:
		return qrcode.Low
	case High:
		return qrcode.High
	case Highest:
		return qrcode.Highest
	}
	return qrcode.Medium
}

// ParseLevel accepts a level name or its standard letter, case-insensitively.
// An empty string yields Medium.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "medium":
		return Medium, nil
	case "l", "low":
		return Low, nil
	case "q", "high":
		return High, nil
	case "h", "highest":
		return Highest, nil
	}
	return Medium, fmt.Errorf("%w: unknown error correction level %q", ErrValidation, s)
}

// Levels lists every level from most to least resilient.
func Levels() []Level { return []Level{Highest, High, Medium, Low} }
