package model

import "time"

// Upload represents one processed image and its annotated copy.
type Upload struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Filename          string    `json:"filename"`
	AnnotatedFilename string    `json:"annotated_filename"`
	PeopleCount       int       `json:"people_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// Detection represents a person box kept for an upload.
type Detection struct {
	ID         int64   `json:"id"`
	UploadID   int64   `json:"upload_id"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}
