package constants

import "strings"

// Document kinds accepted by the pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the document kinds a SourceDocument can carry.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the file extensions accepted at ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to PDF or IMAGE; "" when unsupported.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	if _, ok := AllowedExtensions[ext]; !ok {
		return ""
	}
	if ext == "pdf" {
		return PDF
	}
	return IMAGE
}

// IsHEICExt reports whether the extension needs an external HEIC converter.
func IsHEICExt(ext string) bool {
	ext = NormalizeExt(ext)
	return ext == "heic" || ext == "heif"
}
