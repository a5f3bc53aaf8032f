package imageedit

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"pinflow/internal/domain"
)

// Pin canvas dimensions (2:3), the size the publishing platform renders best.
const (
	pinWidth  = 1000
	pinHeight = 1500
)

const jpegQuality = 90

// publisherFormats are the content types the publisher adapter accepts
// without conversion.
var publisherFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// decodeConfig sniffs dimensions without decoding full pixel data.
func decodeConfig(data []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(data))
}

// fitToCanvas center-crops and scales the image onto the pin canvas, then
// re-encodes it as JPEG. Images already at canvas size in a publisher-accepted
// format pass through untouched.
func fitToCanvas(data []byte) (domain.EditedImage, error) {
	cfg, format, err := decodeConfig(data)
	if err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindUpstreamMalformed, "edited image is not a decodable image", err)
	}
	if contentType, ok := publisherFormats[format]; ok && cfg.Width == pinWidth && cfg.Height == pinHeight {
		return domain.EditedImage{
			Data:        data,
			ContentType: contentType,
			Width:       cfg.Width,
			Height:      cfg.Height,
		}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindUpstreamMalformed, "edited image is not a decodable image", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, pinWidth, pinHeight))
	// White base so transparency survives the JPEG re-encode.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, centerCrop(src.Bounds()), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindInternal, "failed to encode pin canvas", err)
	}
	return domain.EditedImage{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       pinWidth,
		Height:      pinHeight,
	}, nil
}

// centerCrop returns the largest centered sub-rectangle of b matching the pin
// canvas aspect ratio, so scaling never distorts the product.
func centerCrop(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w*pinHeight > h*pinWidth {
		cw := h * pinWidth / pinHeight
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := w * pinHeight / pinWidth
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
