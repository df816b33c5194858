package security

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Standard TOTP parameters: SHA-1, 6 digits, 30-second steps.
const Period = 30

var validateOpts = totp.ValidateOpts{
	Period:    Period,
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type Enrollment struct {
	Secret        string
	URL           string
	QRCodeDataURL string
}

// GenerateEnrollment creates a fresh 160-bit shared secret for the account
// and renders the otpauth provisioning URI as an embeddable PNG data URL.
func GenerateEnrollment(issuer, accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		SecretSize:  20,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(256, 256)
	if err != nil {
		return nil, fmt.Errorf("render qr image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}

	return &Enrollment{
		Secret:        key.Secret(),
		URL:           key.URL(),
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ValidateCode checks a submitted 6-digit code against the stored secret,
// tolerating one adjacent time step of clock drift. It reports the time
// step the code matched so the caller can refuse a replay of the same step.
func ValidateCode(secret, code string, now time.Time) (int64, bool) {
	for _, delta := range []int{0, -1, 1} {
		at := now.Add(time.Duration(delta) * Period * time.Second)
		ok, err := totp.ValidateCustom(code, secret, at.UTC(), validateOpts)
		if err == nil && ok {
			return at.UTC().Unix() / Period, true
		}
	}
	return 0, false
}
