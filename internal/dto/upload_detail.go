package dto

import "peoplecounter/internal/model"

// UploadDetail is one past upload together with the person boxes kept for it.
type UploadDetail struct {
	Upload     HistoryItem       `json:"upload"`
	Detections []model.Detection `json:"detections"`
}
