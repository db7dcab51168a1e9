package entity

import (
	"time"

	"github.com/google/uuid"
)

// Response is one respondent's submission. It is never modified after it was stored.
type Response struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SurveyID        string     `gorm:"type:varchar(36);index;uniqueIndex:idx_response_survey_ip" json:"-"`
	Answers         []Answer   `gorm:"serializer:json" json:"answers"`
	SubmittedAt     time.Time  `gorm:"index" json:"submittedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"` // When the respondent fetched the survey
	RespondentEmail string     `json:"respondentEmail,omitempty"`
	RespondentID    string     `gorm:"type:varchar(64)" json:"respondentId,omitempty"`
	IPAddress       *string    `gorm:"type:varchar(64);uniqueIndex:idx_response_survey_ip" json:"ipAddress,omitempty"`
}

// NewResponse stamps a response for surveyID submitted at now
func NewResponse(surveyID string, answers []Answer, now time.Time) *Response {
	return &Response{
		ID:          uuid.NewString(),
		SurveyID:    surveyID,
		Answers:     answers,
		SubmittedAt: now,
	}
}

// AnswerMap indexes the answers by question id; the first answer for a question wins
func (r *Response) AnswerMap() map[string]AnswerValue {
	out := make(map[string]AnswerValue, len(r.Answers))
	for _, a := range r.Answers {
		if _, ok := out[a.QuestionID]; !ok {
			out[a.QuestionID] = a.Value
		}
	}
	return out
}

// Duration is the time spent answering, when a valid start time was recorded
func (r *Response) Duration() (time.Duration, bool) {
	if r.StartedAt == nil || r.StartedAt.IsZero() || r.StartedAt.After(r.SubmittedAt) {
		return 0, false
	}
	return r.SubmittedAt.Sub(*r.StartedAt), true
}

// SubmitReceipt is what a respondent gets back after a successful submission
type SubmitReceipt struct {
	ResponseID     string `json:"response_id"`
	Message        string `json:"message"`
	ThankYou       string `json:"thank_you_message"`
	ResultsVisible bool   `json:"results_visible"`
}

// Results is the raw response listing available to survey editors
type Results struct {
	TotalResponses int        `json:"total_responses"`
	Responses      []Response `json:"responses"`
}
