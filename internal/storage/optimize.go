package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

const (
	initialQuality = 80
	minQuality     = 50
	qualityStep    = 5
)

var acceptedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// OptimizedImage is an upload ready to be stored.
type OptimizedImage struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Optimizer shrinks uploaded product images.
type Optimizer struct {
	maxBytes       int
	maxUploadBytes int64
}

// NewOptimizer accepts uploads of up to maxUploadMB and produces images of
// at most maxKB.
func NewOptimizer(maxKB, maxUploadMB int) *Optimizer {
	return &Optimizer{
		maxBytes:       maxKB * 1024,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// Optimize reads an upload and returns it as stored. WEBP is kept as is;
// JPEG, PNG and GIF are re-encoded as JPEG, lowering the quality from 80 in
// steps of 5 down to 50 until the result fits.
func (o *Optimizer) Optimize(r io.Reader) (*OptimizedImage, error) {
	raw, err := io.ReadAll(io.LimitReader(r, o.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(raw) == 0 {
		return nil, apperrors.InvalidInput("image is empty")
	}
	if int64(len(raw)) > o.maxUploadBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("image exceeds %d MB", o.maxUploadBytes>>20))
	}

	mtype := mimetype.Detect(raw)
	if !acceptedTypes[mtype.String()] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported image type %q", mtype.String()))
	}
	if mtype.Is("image/webp") {
		return &OptimizedImage{Data: raw, ContentType: "image/webp", Extension: ".webp"}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.InvalidInput("image could not be decoded")
	}
	img := flatten(src)

	quality := initialQuality
	out, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, err
	}
	for len(out) > o.maxBytes && quality > minQuality {
		quality -= qualityStep
		if out, err = encodeJPEG(img, quality); err != nil {
			return nil, err
		}
	}
	if len(out) > o.maxBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("image is still larger than %d KB after compression", o.maxBytes/1024))
	}
	return &OptimizedImage{Data: out, ContentType: "image/jpeg", Extension: ".jpg"}, nil
}

// flatten draws src over white so transparent areas do not turn black in JPEG.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
