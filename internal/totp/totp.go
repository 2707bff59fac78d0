// Package totp generates and verifies RFC 6238 time-based one-time codes.
//
// All functions are pure: the caller supplies the time, so identical secret and
// window always produce identical results. Verification never panics and fails
// closed on malformed input or an undecodable secret.
package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the raw secret length in bytes (160 bits).
	SecretSize = 20
	// Digits is the code length.
	Digits = 6
	// DefaultStep is the code step in seconds.
	DefaultStep uint = 30
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is a base32 (no padding) encoded shared secret. Never log it.
type Secret string

// String redacts the secret so it cannot leak through %v or slog.
func (Secret) String() string { return "[redacted]" }

// Reveal returns the encoded secret for provisioning and sealing.
func (s Secret) Reveal() string { return string(s) }

// Outcome classifies a verification attempt.
type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeValid
	OutcomeMalformed
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Params fixes the step and tolerance used for one verification.
type Params struct {
	StepSeconds    uint
	ToleranceSteps uint
	// LookbackSteps is how far past the tolerance window a code is still
	// recognised as expired rather than invalid. Zero disables the check.
	LookbackSteps uint
}

func (p Params) step() uint {
	if p.StepSeconds == 0 {
		return DefaultStep
	}
	return p.StepSeconds
}

func (p Params) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    p.step(),
		Skew:      p.ToleranceSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret returns a fresh random secret.
func GenerateSecret() (Secret, error) {
	buf := make([]byte, SecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate totp secret: %w", err)
	}
	return Secret(encoding.EncodeToString(buf)), nil
}

// CurrentCode returns the code for the step containing t.
func CurrentCode(secret Secret, t time.Time, stepSeconds uint) (string, error) {
	p := Params{StepSeconds: stepSeconds}
	code, err := totp.GenerateCodeCustom(secret.Reveal(), t, p.validateOpts())
	if err != nil {
		return "", fmt.Errorf("generate totp code: %w", err)
	}
	return code, nil
}

// Verify reports whether code is valid at t within ±p.ToleranceSteps steps.
func Verify(secret Secret, code string, t time.Time, p Params) bool {
	return Check(secret, code, t, p) == OutcomeValid
}

// Check verifies code and classifies a failure. Codes that match a step
// before the tolerance window (up to LookbackSteps further back) are Expired.
func Check(secret Secret, code string, t time.Time, p Params) Outcome {
	code = strings.TrimSpace(code)
	if !wellFormed(code) {
		return OutcomeMalformed
	}
	ok, err := totp.ValidateCustom(code, secret.Reveal(), t, p.validateOpts())
	if err != nil {
		// Undecodable secret or length mismatch: never accept.
		return OutcomeInvalid
	}
	if ok {
		return OutcomeValid
	}
	if matchesPastStep(secret, code, t, p) {
		return OutcomeExpired
	}
	return OutcomeInvalid
}

func matchesPastStep(secret Secret, code string, t time.Time, p Params) bool {
	if p.LookbackSteps == 0 {
		return false
	}
	step := time.Duration(p.step()) * time.Second
	for i := p.ToleranceSteps + 1; i <= p.ToleranceSteps+p.LookbackSteps; i++ {
		past, err := CurrentCode(secret, t.Add(-time.Duration(i)*step), p.step())
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(past), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ProvisioningURI builds the otpauth:// URI an authenticator app or QR code consumes.
func ProvisioningURI(secret Secret, issuer, account string, stepSeconds uint) (string, error) {
	raw, err := encoding.DecodeString(secret.Reveal())
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Params{StepSeconds: stepSeconds}.step(),
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("build provisioning uri: %w", err)
	}
	return key.URL(), nil
}

// WindowEnd returns when the rotation window containing t closes.
func WindowEnd(t time.Time, rotation time.Duration) time.Time {
	if rotation <= 0 {
		rotation = time.Duration(DefaultStep) * time.Second
	}
	return t.Truncate(rotation).Add(rotation)
}
