package entity

// VideoMetrics is derived from the current file of a video asset on demand and
// never stored.
type VideoMetrics struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
	Duration    float64
	Format      string
}

// NewVideoMetrics fills Duration from TotalFrames and FPS (0 when FPS is not positive).
func NewVideoMetrics(width, height int, fps float64, totalFrames int, format string) VideoMetrics {
	m := VideoMetrics{
		Width:       width,
		Height:      height,
		FPS:         fps,
		TotalFrames: totalFrames,
		Format:      format,
	}
	if fps > 0 {
		m.Duration = float64(totalFrames) / fps
	}
	return m
}

// QualityReport is the outcome of the quality gate. Issues keeps the order in
// which checks ran.
type QualityReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}
