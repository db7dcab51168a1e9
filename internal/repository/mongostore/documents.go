package mongostore

import (
	"slices"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
)

// Documents mirror the entities with explicit bson names so the stored shape
// does not depend on the JSON wire format.
type (
	valueDoc struct {
		Kind   string   `bson:"kind"`
		Text   string   `bson:"text,omitempty"`
		List   []string `bson:"list,omitempty"`
		Number float64  `bson:"number,omitempty"`
	}

	branchDoc struct {
		Condition      string   `bson:"condition"`
		Value          valueDoc `bson:"value"`
		ShowQuestionID string   `bson:"show_question_id"`
	}

	questionDoc struct {
		ID          string     `bson:"id"`
		Type        string     `bson:"type"`
		Text        string     `bson:"text"`
		Options     []string   `bson:"options,omitempty"`
		Required    bool       `bson:"required"`
		Order       int        `bson:"order"`
		BranchLogic *branchDoc `bson:"branch_logic,omitempty"`
	}

	settingsDoc struct {
		AllowAnonymous   bool   `bson:"allow_anonymous"`
		CollectEmail     bool   `bson:"collect_email"`
		OneResponsePerIP bool   `bson:"one_response_per_ip"`
		ShowResults      bool   `bson:"show_results"`
		CustomThankYou   string `bson:"custom_thank_you"`
	}

	surveyDoc struct {
		ID            string        `bson:"_id"`
		Title         string        `bson:"title"`
		Description   string        `bson:"description"`
		CreatorID     string        `bson:"creator_id"`
		Questions     []questionDoc `bson:"questions"`
		CreatedAt     time.Time     `bson:"created_at"`
		UpdatedAt     time.Time     `bson:"updated_at"`
		ExpiresAt     *time.Time    `bson:"expires_at,omitempty"`
		IsPublic      bool          `bson:"is_public"`
		ShareableLink string        `bson:"shareable_link"`
		Collaborators []string      `bson:"collaborators"`
		Settings      settingsDoc   `bson:"settings"`
	}

	answerDoc struct {
		QuestionID string   `bson:"question_id"`
		Value      valueDoc `bson:"value"`
	}

	responseDoc struct {
		ID              string      `bson:"_id"`
		SurveyID        string      `bson:"survey_id"`
		Answers         []answerDoc `bson:"answers"`
		SubmittedAt     time.Time   `bson:"submitted_at"`
		StartedAt       *time.Time  `bson:"started_at,omitempty"`
		RespondentEmail string      `bson:"respondent_email,omitempty"`
		RespondentID    string      `bson:"respondent_id,omitempty"`
		IPAddress       *string     `bson:"ip_address,omitempty"`
	}

	templateDoc struct {
		ID          string        `bson:"_id"`
		Title       string        `bson:"title"`
		Description string        `bson:"description"`
		Category    string        `bson:"category,omitempty"`
		Tags        []string      `bson:"tags,omitempty"`
		Questions   []questionDoc `bson:"questions"`
		Settings    *settingsDoc  `bson:"settings,omitempty"`
		Popularity  int           `bson:"popularity"`
		CreatedAt   time.Time     `bson:"created_at"`
	}
)

func toValueDoc(v entity.AnswerValue) valueDoc {
	return valueDoc{Kind: string(v.Kind), Text: v.Text, List: v.List, Number: v.Number}
}

func (d valueDoc) entity() entity.AnswerValue {
	switch entity.ValueKind(d.Kind) {
	case entity.KindText:
		return entity.TextValue(d.Text)
	case entity.KindList:
		return entity.ListValue(d.List...)
	case entity.KindNumber:
		return entity.NumberValue(d.Number)
	default:
		return entity.AnswerValue{}
	}
}

func toQuestionDocs(questions []entity.Question) []questionDoc {
	out := make([]questionDoc, 0, len(questions))
	for _, q := range questions {
		doc := questionDoc{
			ID:       q.ID,
			Type:     string(q.Type),
			Text:     q.Text,
			Options:  q.Options,
			Required: q.Required,
			Order:    q.Order,
		}
		if bl := q.BranchLogic; !bl.IsEmpty() {
			doc.BranchLogic = &branchDoc{
				Condition:      bl.Condition,
				Value:          toValueDoc(bl.Value),
				ShowQuestionID: bl.ShowQuestionID,
			}
		}
		out = append(out, doc)
	}
	return out
}

func questionsFromDocs(surveyID string, docs []questionDoc) []entity.Question {
	out := make([]entity.Question, 0, len(docs))
	for _, d := range docs {
		q := entity.Question{
			ID:       d.ID,
			SurveyID: surveyID,
			Type:     entity.QuestionType(d.Type),
			Text:     d.Text,
			Options:  slices.Clone(d.Options),
			Required: d.Required,
			Order:    d.Order,
		}
		if d.BranchLogic != nil {
			q.BranchLogic = &entity.BranchLogic{
				Condition:      d.BranchLogic.Condition,
				Value:          d.BranchLogic.Value.entity(),
				ShowQuestionID: d.BranchLogic.ShowQuestionID,
			}
		}
		out = append(out, q)
	}
	return out
}

func toSettingsDoc(s entity.Settings) settingsDoc {
	return settingsDoc(s)
}

func (d settingsDoc) entity() entity.Settings {
	return entity.Settings(d)
}

func toSurveyDoc(s *entity.Survey) surveyDoc {
	collaborators := s.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}

	return surveyDoc{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		CreatorID:     s.CreatorID,
		Questions:     toQuestionDocs(s.Questions),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ExpiresAt:     s.ExpiresAt,
		IsPublic:      s.IsPublic,
		ShareableLink: s.ShareableLink,
		Collaborators: collaborators,
		Settings:      toSettingsDoc(s.Settings),
	}
}

func (d surveyDoc) entity() *entity.Survey {
	s := &entity.Survey{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		CreatorID:     d.CreatorID,
		Questions:     questionsFromDocs(d.ID, d.Questions),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		ExpiresAt:     d.ExpiresAt,
		IsPublic:      d.IsPublic,
		ShareableLink: d.ShareableLink,
		Collaborators: append([]string{}, d.Collaborators...),
		Settings:      d.Settings.entity(),
	}
	s.Questions = s.OrderedQuestions()
	return s
}

func toResponseDoc(r *entity.Response) responseDoc {
	answers := make([]answerDoc, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, answerDoc{QuestionID: a.QuestionID, Value: toValueDoc(a.Value)})
	}

	return responseDoc{
		ID:              r.ID,
		SurveyID:        r.SurveyID,
		Answers:         answers,
		SubmittedAt:     r.SubmittedAt,
		StartedAt:       r.StartedAt,
		RespondentEmail: r.RespondentEmail,
		RespondentID:    r.RespondentID,
		IPAddress:       r.IPAddress,
	}
}

func (d responseDoc) entity() entity.Response {
	answers := make([]entity.Answer, 0, len(d.Answers))
	for _, a := range d.Answers {
		answers = append(answers, entity.Answer{QuestionID: a.QuestionID, Value: a.Value.entity()})
	}

	return entity.Response{
		ID:              d.ID,
		SurveyID:        d.SurveyID,
		Answers:         answers,
		SubmittedAt:     d.SubmittedAt,
		StartedAt:       d.StartedAt,
		RespondentEmail: d.RespondentEmail,
		RespondentID:    d.RespondentID,
		IPAddress:       d.IPAddress,
	}
}

func toTemplateDoc(t *entity.Template) templateDoc {
	doc := templateDoc{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Tags:        t.Tags,
		Questions:   toQuestionDocs(t.Questions),
		Popularity:  t.Popularity,
		CreatedAt:   t.CreatedAt,
	}
	if t.Settings != nil {
		s := toSettingsDoc(*t.Settings)
		doc.Settings = &s
	}
	return doc
}

func (d templateDoc) entity() entity.Template {
	t := entity.Template{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Tags:        d.Tags,
		Questions:   questionsFromDocs("", d.Questions),
		Popularity:  d.Popularity,
		CreatedAt:   d.CreatedAt,
	}
	if d.Settings != nil {
		s := d.Settings.entity()
		t.Settings = &s
	}
	return t
}
