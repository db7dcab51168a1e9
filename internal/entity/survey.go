// Package entity defines the core data structures used throughout the application
package entity

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType is the kind of input a question asks for
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Rating         QuestionType = "rating"
	Text           QuestionType = "text"
	Dropdown       QuestionType = "dropdown"
)

// ConditionEquals is the only branch condition with defined semantics
const ConditionEquals = "equals"

// Rating questions are answered on a fixed 1..5 scale
const (
	RatingMin = 1
	RatingMax = 5
)

const DefaultThankYou = "Thank you for completing the survey!"

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, Rating, Text, Dropdown:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry an option list
func (t QuestionType) HasOptions() bool {
	return t == MultipleChoice || t == Dropdown
}

type (
	// BranchLogic makes a question visible only when the controlling question
	// (ShowQuestionID) was answered with Value
	BranchLogic struct {
		Condition      string      `json:"condition"`
		Value          AnswerValue `json:"value"`
		ShowQuestionID string      `json:"showQuestionId,omitempty"`
	}

	// Question represents a single question within a survey. Ids are unique
	// within their survey only, so the stored key is (survey_id, id).
	Question struct {
		ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
		SurveyID    string       `gorm:"primaryKey;type:varchar(36);index" json:"-"`
		Type        QuestionType `gorm:"type:varchar(32)" json:"type"`
		Text        string       `json:"text"`
		Options     []string     `gorm:"serializer:json" json:"options,omitempty"`
		Required    bool         `json:"required"`
		Order       int          `gorm:"column:position" json:"order"` // Position of question in survey
		BranchLogic *BranchLogic `gorm:"serializer:json" json:"branchLogic,omitempty"`
	}

	// Settings toggles respondent-facing behaviour of a survey
	Settings struct {
		AllowAnonymous   bool   `json:"allowAnonymous"`
		CollectEmail     bool   `json:"collectEmail"`
		OneResponsePerIP bool   `gorm:"column:one_response_per_ip" json:"oneResponsePerIp"`
		ShowResults      bool   `json:"showResults"`
		CustomThankYou   string `json:"customThankYou"`
	}

	// Survey is the aggregate root owning its questions and responses
	Survey struct {
		ID            string     `gorm:"primaryKey;type:varchar(36)" json:"_id"`
		Title         string     `json:"title"`
		Description   string     `json:"description"`
		CreatorID     string     `gorm:"type:varchar(64);index" json:"creator_id"`
		Questions     []Question `gorm:"foreignKey:SurveyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
		CreatedAt     time.Time  `json:"created_at"`
		UpdatedAt     time.Time  `json:"updated_at"`
		ExpiresAt     *time.Time `json:"expires_at,omitempty"`
		IsPublic      bool       `json:"is_public"`
		ShareableLink string     `gorm:"type:varchar(36);uniqueIndex" json:"shareable_link"`
		Collaborators []string   `gorm:"serializer:json" json:"collaborators"`
		Responses     []Response `gorm:"foreignKey:SurveyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"responses,omitempty"`
		Settings      Settings   `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	}

	// OutputQuestion is the respondent view of a question
	OutputQuestion struct {
		ID          string       `json:"id"`
		Type        QuestionType `json:"type"`
		Text        string       `json:"text"`
		Options     []string     `json:"options,omitempty"`
		Required    bool         `json:"required"`
		Order       int          `json:"order"`
		BranchLogic *BranchLogic `json:"branchLogic,omitempty"`
	}

	// OutputSurvey is the respondent view of a survey: no responses, no collaborators
	OutputSurvey struct {
		ID          string           `json:"_id"`
		Title       string           `json:"title"`
		Description string           `json:"description"`
		ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
		Settings    Settings         `json:"settings"`
		Questions   []OutputQuestion `json:"questions"`
	}
)

// DefaultSettings mirrors the defaults a new survey starts with
func DefaultSettings() Settings {
	return Settings{
		AllowAnonymous:   true,
		CollectEmail:     false,
		OneResponsePerIP: true,
		ShowResults:      true,
		CustomThankYou:   DefaultThankYou,
	}
}

// NewSurvey creates a public survey owned by creatorID with fresh identifiers
func NewSurvey(title, description, creatorID string) *Survey {
	now := time.Now().UTC()
	return &Survey{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   description,
		CreatorID:     creatorID,
		CreatedAt:     now,
		UpdatedAt:     now,
		IsPublic:      true,
		ShareableLink: uuid.NewString(),
		Collaborators: []string{},
		Settings:      DefaultSettings(),
	}
}

// IsEmpty reports whether the branch logic carries no rule at all, which is
// how an empty object on the wire is read
func (b *BranchLogic) IsEmpty() bool {
	return b == nil || (b.Condition == "" && b.ShowQuestionID == "" && b.Value.IsZero())
}

// IsExpired reports whether the survey stopped accepting responses at now
func (s *Survey) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// IsCollaborator reports whether userID is listed as a collaborator
func (s *Survey) IsCollaborator(userID string) bool {
	return userID != "" && slices.Contains(s.Collaborators, userID)
}

// OrderedQuestions returns a copy of the questions sorted by Order
func (s *Survey) OrderedQuestions() []Question {
	out := slices.Clone(s.Questions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Question looks up a question by id
func (s *Survey) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Normalize prepares the survey for storage: questions get ids, survey ids,
// dense orders following their current sequence, trimmed options, and empty
// branch logic is dropped
func (s *Survey) Normalize() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ShareableLink == "" {
		s.ShareableLink = uuid.NewString()
	}
	if s.Collaborators == nil {
		s.Collaborators = []string{}
	}

	s.Questions = s.OrderedQuestions()
	for i := range s.Questions {
		q := &s.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.SurveyID = s.ID
		q.Order = i

		if q.BranchLogic.IsEmpty() {
			q.BranchLogic = nil
		}

		if q.Type.HasOptions() {
			for j, opt := range q.Options {
				q.Options[j] = strings.TrimSpace(opt)
			}
		} else {
			q.Options = nil
		}
	}
}

// Validate checks the survey's own invariants; branch graph checks live in
// the branch package
func (s *Survey) Validate() error {
	if s.ID == "" {
		return errors.New("survey ID can not be nil")
	}
	if s.CreatorID == "" {
		return errors.New("creator ID can not be nil")
	}
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Issues: []Issue{{Message: "title is required"}}}
	}

	var issues []Issue
	seen := make(map[string]bool, len(s.Questions))
	orders := make(map[int]bool, len(s.Questions))

	for _, q := range s.Questions {
		if seen[q.ID] {
			issues = append(issues, Issue{QuestionID: q.ID, Message: "duplicate question id"})
		}
		seen[q.ID] = true

		if orders[q.Order] || q.Order < 0 || q.Order >= len(s.Questions) {
			issues = append(issues, Issue{QuestionID: q.ID, Message: fmt.Sprintf("order %d is not dense", q.Order)})
		}
		orders[q.Order] = true

		if !q.Type.Valid() {
			issues = append(issues, Issue{QuestionID: q.ID, Message: fmt.Sprintf("unknown question type %q", q.Type)})
			continue
		}
		if strings.TrimSpace(q.Text) == "" {
			issues = append(issues, Issue{QuestionID: q.ID, Message: "question text is required"})
		}
		if q.Type.HasOptions() {
			if len(q.Options) == 0 {
				issues = append(issues, Issue{QuestionID: q.ID, Message: "choice question needs options"})
			}
			for _, opt := range q.Options {
				if strings.TrimSpace(opt) == "" {
					issues = append(issues, Issue{QuestionID: q.ID, Message: "options must not be blank"})
					break
				}
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ToOutput converts a Question entity to its respondent representation
func (q *Question) ToOutput() OutputQuestion {
	return OutputQuestion{
		ID:          q.ID,
		Type:        q.Type,
		Text:        q.Text,
		Options:     q.Options,
		Required:    q.Required,
		Order:       q.Order,
		BranchLogic: q.BranchLogic,
	}
}

// ToOutput converts a Survey entity to its respondent representation
// including all questions in display order
func (s *Survey) ToOutput() OutputSurvey {
	questions := s.OrderedQuestions()
	out := OutputSurvey{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		ExpiresAt:   s.ExpiresAt,
		Settings:    s.Settings,
		Questions:   make([]OutputQuestion, len(questions)),
	}

	for i, q := range questions {
		out.Questions[i] = q.ToOutput()
	}

	return out
}
