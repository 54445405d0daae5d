package ingest

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pageocr/constants"
)

// AllowedExt checks if a file extension is in the accepted set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

var sniffedExt = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/gif":       "gif",
	"image/bmp":       "bmp",
	"image/webp":      "webp",
}

// SniffExt maps leading content bytes to an extension; "" when unrecognized.
func SniffExt(head []byte) string {
	if len(head) >= 4 {
		// net/http does not sniff TIFF.
		if string(head[:4]) == "II*\x00" || string(head[:4]) == "MM\x00*" {
			return "tiff"
		}
	}
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return sniffedExt[ct]
}
