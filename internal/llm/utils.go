package llm

import (
	"encoding/base64"
	"mime"

	"github.com/joseph-ayodele/patient-intake/constants"
)

// DataURL encodes image bytes as a data URL for vision requests.
func DataURL(content []byte, ext string) string {
	ext = constants.NormalizeExt(ext)
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(content)
}
