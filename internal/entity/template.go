package entity

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Template is a reusable survey blueprint
type Template struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `gorm:"type:varchar(64);index" json:"category,omitempty"`
	Tags        []string   `gorm:"serializer:json" json:"tags,omitempty"`
	Questions   []Question `gorm:"serializer:json" json:"questions"`
	Settings    *Settings  `gorm:"serializer:json" json:"settings,omitempty"`
	Popularity  int        `json:"popularity"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Instantiate creates a new survey owned by creatorID from the template.
// Questions get fresh ids; branch references are remapped to them.
func (t *Template) Instantiate(creatorID string) *Survey {
	s := NewSurvey(t.Title+" (Copy)", t.Description, creatorID)
	if t.Settings != nil {
		s.Settings = *t.Settings
	}

	fresh := make([]string, len(t.Questions))
	ids := make(map[string]string, len(t.Questions))
	for i, q := range t.Questions {
		fresh[i] = uuid.NewString()
		if q.ID == "" {
			continue
		}
		if _, seen := ids[q.ID]; !seen {
			ids[q.ID] = fresh[i]
		}
	}

	s.Questions = make([]Question, 0, len(t.Questions))
	for i, q := range t.Questions {
		cp := q
		cp.ID = fresh[i]
		cp.SurveyID = s.ID
		cp.Options = slices.Clone(q.Options)
		if q.BranchLogic != nil {
			bl := *q.BranchLogic
			if mapped, ok := ids[bl.ShowQuestionID]; ok {
				bl.ShowQuestionID = mapped
			}
			cp.BranchLogic = &bl
		}
		s.Questions = append(s.Questions, cp)
	}

	return s
}
