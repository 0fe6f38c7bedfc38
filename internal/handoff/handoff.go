// Package handoff builds the artifact a desktop shows so a phone can join a
// capture session: the capture URL and its QR encoding. Both transforms are
// pure; security rests entirely on the session token's unguessability.
package handoff

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Default pixel size of the generated QR image.
const DefaultQRSize = 256

// BuildCaptureURL concatenates the desktop origin, the capture path prefix,
// and the session token. No signing is added: the token is the capability.
func BuildCaptureURL(baseURL, pathPrefix, sessionID string) string {
	base := strings.TrimSuffix(baseURL, "/")
	prefix := "/" + strings.Trim(pathPrefix, "/")
	if prefix == "/" {
		return base + "/" + sessionID
	}
	return base + prefix + "/" + sessionID
}

// QRPNG renders the capture URL as a PNG QR code. Medium error correction is
// enough to survive a phone-camera scan at arm's length.
func QRPNG(captureURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(captureURL, qrcode.Medium, size)
}
