package dto

import (
	"encoding/json"
	"time"
)

// HistoryItem describes one past upload of the current user.
type HistoryItem struct {
	ID                int64     `json:"id"`
	Filename          string    `json:"filename"`
	AnnotatedFilename string    `json:"annotated_filename"`
	PeopleCount       int       `json:"people_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// MarshalJSON formats the upload time as date and time-of-day strings.
func (h HistoryItem) MarshalJSON() ([]byte, error) {
	type Alias HistoryItem
	return json.Marshal(&struct {
		Alias
		CreatedAt string `json:"created_at"`
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
	}{
		Alias:     (Alias)(h),
		CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
		Date:      h.CreatedAt.Format("02-01-2006"),
		TimeOfDay: h.CreatedAt.Format("15:04"),
	})
}

// HistoryPage is a paginated list of uploads.
type HistoryPage struct {
	Items       []HistoryItem `json:"items"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
