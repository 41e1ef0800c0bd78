package privacy

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

type Redactor struct {
	detector FaceDetector
	logger   *zap.Logger
}

func NewRedactor(detector FaceDetector, logger *zap.Logger) *Redactor {
	return &Redactor{detector: detector, logger: logger}
}

// Redact pixelates every detected face in the frame and rewrites the file.
// A frame without detections is left untouched.
func (r *Redactor) Redact(ctx context.Context, frame entity.MediaAsset) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if frame.Kind != entity.MediaKindImage {
		return 0, entity.NewValidationError("frame", "expected an image asset, got %q", frame.Kind)
	}

	img, err := decodeImage(frame.Path)
	if err != nil {
		return 0, &entity.ExtractionError{Msg: "decode " + frame.Name(), Err: err}
	}

	bounds := img.Bounds()
	var regions []image.Rectangle
	for _, face := range r.detector.Detect(img) {
		face = face.Intersect(bounds)
		if !face.Empty() {
			regions = append(regions, face)
		}
	}
	if len(regions) == 0 {
		return 0, nil
	}

	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)
	for _, region := range regions {
		pixelate(canvas, region)
	}

	if err := writeAtomic(frame, canvas); err != nil {
		return 0, &entity.ExtractionError{Msg: "rewrite " + frame.Name(), Err: err}
	}

	r.logger.Debug("faces redacted", zap.String("frame", frame.Name()), zap.Int("regions", len(regions)))
	return len(regions), nil
}

// pixelate replaces region with a coarse mosaic of blocks min(w,h)/8 wide.
func pixelate(img *image.RGBA, region image.Rectangle) {
	w, h := region.Dx(), region.Dy()
	block := max(1, min(w, h)/8)
	gw := (w + block - 1) / block
	gh := (h + block - 1) / block

	small := image.NewRGBA(image.Rect(0, 0, gw, gh))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, region, draw.Src, nil)
	draw.NearestNeighbor.Scale(img, region, small, small.Bounds(), draw.Src, nil)
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func writeAtomic(frame entity.MediaAsset, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(frame.Path), ".redact-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encodeImage(tmp, frame.Extension, img); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), frame.Path)
}

func encodeImage(w io.Writer, ext string, img image.Image) error {
	switch entity.NormalizeExtension(ext) {
	case "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	}
	return fmt.Errorf("unsupported image extension %q", ext)
}
