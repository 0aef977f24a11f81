package dto

import "peoplecounter/internal/service/detection"

// UploadResult is what the result page and JSON clients get back after an upload.
type UploadResult struct {
	UploadID          int64                 `json:"upload_id"`
	Filename          string                `json:"filename"`
	AnnotatedFilename string                `json:"annotated_filename"`
	PeopleCount       int                   `json:"people_count"`
	Detections        []detection.Detection `json:"detections"`
}
