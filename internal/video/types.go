package video

import "time"

// DefaultLineType marks a counting line whose direction was not specified.
const DefaultLineType = "entry"

// Line is a counting line drawn over the video frame.
type Line struct {
	ID   int64   `json:"id"`
	Type string  `json:"type,omitempty"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

// Mask is a rectangular privacy region excluded from analysis.
type Mask struct {
	ID     int64   `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Video is a stored recording with its annotation geometry.
type Video struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"filePath"`
	UserID      int64     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	Lines       []Line    `json:"lines"`
	Masks       []Mask    `json:"masks"`
}
