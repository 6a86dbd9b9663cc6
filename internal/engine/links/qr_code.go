package links

import (
	"errors"

	"payhook/internal/platform/models"

	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 512

var ErrInvalidQRSize = errors.New("invalid size: must be between 128 and 2048")

// QRCode renders the link's public webhook URL as a PNG so operators can
// scan it into a platform's dashboard.
func QRCode(link *models.WebhookLink, size int) ([]byte, error) {
	if size == 0 {
		size = defaultQRSize
	}
	if size < 128 || size > 2048 {
		return nil, ErrInvalidQRSize
	}
	if link.WebhookURL == "" {
		return nil, errors.New("link has no webhook url")
	}

	return qrcode.Encode(link.WebhookURL, qrcode.Medium, size)
}
