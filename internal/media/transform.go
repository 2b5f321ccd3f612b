// Package media implements the media pipeline: a pure transform that
// normalizes uploaded photographs, and a store abstraction that keeps the
// resulting assets durable.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"strings"

	_ "image/gif"  // register GIF decoder
	_ "image/png"  // register PNG decoder

	"picpal/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// PostSize is the edge length of a normalized post photo.
	PostSize = 800
	// ProfilePicSize is the edge length of a normalized profile picture.
	ProfilePicSize = 200
	// PreviewSize is the edge length of the WebP feed preview.
	PreviewSize = 256

	JPEGQuality = 80
	WebPQuality = 70

	DefaultMaxUploadMB = 10
)

// Normalized is the output of the transform: a square JPEG master at the
// requested size plus a small WebP preview for feed rendering.
type Normalized struct {
	JPEG    []byte
	Preview []byte
	Size    int
}

// Transformer normalizes raw uploads. It is stateless and safe for
// concurrent use.
type Transformer struct {
	maxBytes int64
}

// NewTransformer creates a transformer with the given upload size cap in MB.
// A non-positive cap falls back to the default.
func NewTransformer(maxUploadMB int) *Transformer {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	return &Transformer{maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// Normalize decodes the uploaded bytes, center-crops to a square, scales to
// size x size, and re-encodes. Every stored post photo passes through here,
// which guarantees bounded dimensions and a single JPEG master format.
func (t *Transformer) Normalize(content []byte, size int) (*Normalized, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > t.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", t.maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	square := cropSquare(decoded)
	master := resizeTo(square, size, size)

	encodedJPEG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	preview := resizeTo(square, PreviewSize, PreviewSize)
	encodedPreview, err := encodeWebP(preview, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &Normalized{
		JPEG:    encodedJPEG,
		Preview: encodedPreview,
		Size:    size,
	}, nil
}

// cropSquare center-crops the image to its largest contained square.
func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return src
	}

	edge := w
	if h < edge {
		edge = h
	}
	x := b.Min.X + (w-edge)/2
	y := b.Min.Y + (h-edge)/2

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	xdraw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, xdraw.Src)
	return dst
}

// resizeTo scales src to exactly width x height.
func resizeTo(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
