// Package ticket mints booking codes and the per-seat scannable credentials
// derived from them.
package ticket

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of each generated QR image.
const QRSize = 256

// NewBookingCode returns a short uppercase hex identifier taken from the
// first group of a random UUID. Uniqueness is enforced by the bookings table,
// not here; a collision surfaces as repository.ErrDuplicateCode.
func NewBookingCode() string {
	return strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// SeatPayload is the scannable content of seat i (1-based) of a booking.
func SeatPayload(code string, seat int) string {
	return fmt.Sprintf("%s-%d", code, seat)
}

// Credentials derives one credential per seat. The output depends only on
// (code, seats), so a stored booking can re-issue identical tickets.
func Credentials(code string, seats int) ([]model.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("booking code is required")
	}
	if seats < 1 {
		return nil, fmt.Errorf("seat count must be at least 1, got %d", seats)
	}

	creds := make([]model.Credential, 0, seats)
	for i := 1; i <= seats; i++ {
		payload := SeatPayload(code, i)
		png, err := qrcode.Encode(payload, qrcode.Medium, QRSize)
		if err != nil {
			return nil, fmt.Errorf("encode seat %d: %w", i, err)
		}
		creds = append(creds, model.Credential{
			Seat:    i,
			Payload: payload,
			Image:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		})
	}
	return creds, nil
}

// DecodeImage returns the raw PNG bytes held in a credential's data URL.
func DecodeImage(c model.Credential) ([]byte, error) {
	_, data, ok := strings.Cut(c.Image, ",")
	if !ok {
		return nil, fmt.Errorf("seat %d: credential image is not a data URL", c.Seat)
	}
	png, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("seat %d: decode credential image: %w", c.Seat, err)
	}
	return png, nil
}
