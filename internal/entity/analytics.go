package entity

import "encoding/json"

type (
	// QuestionData holds the per-type figures of one question. Which fields are
	// meaningful depends on the question type.
	QuestionData struct {
		Labels    []string
		Values    []int
		Average   *float64 // rating only; nil when nobody answered
		Responses []string // text only
	}

	// QuestionAnalytics is the derived view of one question
	QuestionAnalytics struct {
		QuestionID   string       `json:"questionId"`
		QuestionText string       `json:"questionText"`
		Type         QuestionType `json:"type"`
		Data         QuestionData `json:"data"`
	}

	// SurveyAnalytics is recomputed from the stored responses on every request
	SurveyAnalytics struct {
		SurveyID          string              `json:"surveyId"`
		TotalResponses    int                 `json:"totalResponses"`
		CompletionRate    float64             `json:"completionRate"`
		AverageTimeSpent  float64             `json:"averageTimeSpent"` // minutes
		QuestionAnalytics []QuestionAnalytics `json:"questionAnalytics"`
	}
)

type (
	choiceData struct {
		Labels []string `json:"labels"`
		Values []int    `json:"values"`
	}

	ratingData struct {
		Labels  []string `json:"labels"`
		Values  []int    `json:"values"`
		Average *float64 `json:"average,omitempty"`
	}

	textData struct {
		Responses []string `json:"responses"`
	}
)

// MarshalJSON writes only the fields that belong to the question type, with
// empty arrays instead of nulls
func (q QuestionAnalytics) MarshalJSON() ([]byte, error) {
	var data any

	switch q.Type {
	case MultipleChoice, Dropdown:
		data = choiceData{Labels: nonNil(q.Data.Labels), Values: nonNilInts(q.Data.Values)}
	case Rating:
		data = ratingData{Labels: nonNil(q.Data.Labels), Values: nonNilInts(q.Data.Values), Average: q.Data.Average}
	case Text:
		data = textData{Responses: nonNil(q.Data.Responses)}
	default:
		data = struct{}{}
	}

	return json.Marshal(struct {
		QuestionID   string       `json:"questionId"`
		QuestionText string       `json:"questionText"`
		Type         QuestionType `json:"type"`
		Data         any          `json:"data"`
	}{q.QuestionID, q.QuestionText, q.Type, data})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
