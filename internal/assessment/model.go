package assessment

import (
	"time"

	"github.com/lib/pq"

	"stroke_rehab_backend/internal/common"
)

// Assessment kinds collected by the rehabilitation program.
const (
	KindNIHSS         = "nihss"
	KindPHQ9          = "phq9"
	KindBloodPressure = "blood_pressure"
	KindSpeech        = "speech"
	KindMovement      = "movement"
)

// Assessment is one recorded self-assessment or measurement for a user.
// Answers keeps the raw per-question responses alongside the computed
// score.
type Assessment struct {
	common.BaseModel
	UserID     uint           `gorm:"not null;index:idx_assessments_user_id"`
	Kind       string         `gorm:"type:varchar(50);not null;index:idx_assessments_kind"`
	Score      *int
	Answers    pq.StringArray `gorm:"type:text[]"`
	Notes      *string        `gorm:"type:text"`
	RecordedAt time.Time      `gorm:"not null;index:idx_assessments_recorded_at"`
}

// TableName specifies the table name for the Assessment model.
func (Assessment) TableName() string {
	return "assessments"
}

// CreateRequest is the payload for recording a new assessment.
type CreateRequest struct {
	Kind       string     `json:"kind" binding:"required,oneof=nihss phq9 blood_pressure speech movement"`
	Score      *int       `json:"score,omitempty"`
	Answers    []string   `json:"answers,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// ListQuery carries the list filters and pagination parameters.
type ListQuery struct {
	Kind     string `form:"kind" binding:"omitempty,oneof=nihss phq9 blood_pressure speech movement"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// Response is the API shape of an assessment.
type Response struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Kind       string    `json:"kind"`
	Score      *int      `json:"score,omitempty"`
	Answers    []string  `json:"answers,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToResponse converts an Assessment model to its API shape.
func ToResponse(a *Assessment) Response {
	return Response{
		ID:         a.ID,
		UserID:     a.UserID,
		Kind:       a.Kind,
		Score:      a.Score,
		Answers:    []string(a.Answers),
		Notes:      a.Notes,
		RecordedAt: a.RecordedAt,
		CreatedAt:  a.CreatedAt,
	}
}

// ToResponses converts a slice of assessments.
func ToResponses(list []Assessment) []Response {
	responses := make([]Response, 0, len(list))
	for i := range list {
		responses = append(responses, ToResponse(&list[i]))
	}
	return responses
}
