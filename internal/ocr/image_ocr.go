package ocr

import (
	"context"

	"github.com/joseph-ayodele/pageocr/constants"
)

// rasterizeImage decodes a plain image as the document's only page. The native
// resolution is kept, so the bitmap carries no DPI.
func (r *PageRasterizer) rasterizeImage(ctx context.Context, doc *SourceDocument, page int, mode ColorMode) (*Bitmap, error) {
	if page != 1 {
		return nil, rasterizeErr(page, "image documents have exactly one page")
	}

	path := doc.Path
	if constants.IsHEICExt(doc.Ext) {
		out, cleanup, err := convertHEICtoPNG(ctx, r.runner, r.logger, r.cfg.HeicConverter, r.cfg.TempDir, path)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return nil, rasterizeErr(page, "%v", err)
		}
		path = out
	}

	img, format, err := decodeImageFile(path)
	if err != nil {
		return nil, rasterizeErr(page, "decode image: %v", err)
	}
	r.logger.Debug("image decoded", "format", format, "ext", doc.Ext)
	return NewBitmap(applyColorMode(img, mode), page, 0, mode), nil
}
