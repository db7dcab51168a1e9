package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Domain events published after a successful mutation
const (
	EventSurveyCreated     = "survey.created"
	EventSurveyUpdated     = "survey.updated"
	EventSurveyDeleted     = "survey.deleted"
	EventResponseSubmitted = "response.submitted"
)

// Event is the envelope carried over the message bus
type Event struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(Type string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      Type,
		Timestamp: time.Now(),
	}
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if e.Payload == nil {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}

type (
	// Actor identifies who asked for a bus request
	Actor struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}

	// SurveyRequest asks to create a survey, or to update SurveyID when set
	SurveyRequest struct {
		Actor    Actor       `json:"actor"`
		SurveyID string      `json:"survey_id,omitempty"`
		Survey   SurveyInput `json:"survey"`
	}

	// DeleteSurveyRequest asks to delete a survey
	DeleteSurveyRequest struct {
		Actor    Actor  `json:"actor"`
		SurveyID string `json:"survey_id"`
	}

	// SubmitRequest carries a respondent submission
	SubmitRequest struct {
		Actor     Actor           `json:"actor"`
		SurveyID  string          `json:"survey_id"`
		IPAddress string          `json:"ip_address,omitempty"`
		Response  SubmissionInput `json:"response"`
	}

	// SurveyDeleted is the payload of survey.deleted
	SurveyDeleted struct {
		SurveyID string `json:"survey_id"`
	}

	// ResponseSubmitted is the payload of response.submitted
	ResponseSubmitted struct {
		SurveyID    string    `json:"survey_id"`
		ResponseID  string    `json:"response_id"`
		SubmittedAt time.Time `json:"submitted_at"`
	}
)

// DecodePayload unmarshals the event payload into out
func (e *Event) DecodePayload(out any) error {
	return json.Unmarshal(e.Payload, out)
}
