package utils

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Aashish23092/invoice-extractor/dto"
)

var errInvalidQR = eris.New("not a signed e-invoice QR payload")

// ParseEInvoiceQR decodes the JWT carried by a GST e-invoice QR code. The
// signature is not verified; only the claims are read.
func ParseEInvoiceQR(token string) (*dto.EInvoiceQR, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, eris.Wrapf(errInvalidQR, "expected 3 JWT segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode QR payload")
	}

	var claims struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, eris.Wrap(err, "failed to read QR claims")
	}
	if claims.Data == "" {
		return nil, eris.Wrap(errInvalidQR, "QR claims carry no data")
	}

	var qr dto.EInvoiceQR
	if err := json.Unmarshal([]byte(claims.Data), &qr); err != nil {
		return nil, eris.Wrap(err, "failed to read e-invoice data")
	}
	return &qr, nil
}
