package privacy

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// FaceDetector finds face regions in an image.
type FaceDetector interface {
	Detect(img image.Image) []image.Rectangle
}

type PigoDetector struct {
	classifier  *pigo.Pigo
	minSize     int
	scoreCutoff float32
}

// NewPigoDetector loads a pigo cascade (the "facefinder" file) from disk.
func NewPigoDetector(cascadePath string, minSize int, scoreCutoff float64) (*PigoDetector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read face cascade: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier, minSize: minSize, scoreCutoff: float32(scoreCutoff)}, nil
}

func (d *PigoDetector) Detect(img image.Image) []image.Rectangle {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	pixels := pigo.RgbToGrayscale(pigo.ImgToNRGBA(img))

	params := pigo.CascadeParams{
		MinSize:     d.minSize,
		MaxSize:     max(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	var faces []image.Rectangle
	for _, det := range dets {
		if det.Q < d.scoreCutoff {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).Add(bounds.Min)
		faces = append(faces, r)
	}
	return faces
}
