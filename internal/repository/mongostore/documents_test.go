package mongostore

import (
	"testing"
	"time"

	"github.com/Koyo-os/survey-service/internal/analytics"
	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSurveyDocumentRoundTrip(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	survey := &entity.Survey{
		ID:            "s1",
		Title:         "Cars",
		CreatorID:     "owner",
		CreatedAt:     created,
		UpdatedAt:     created,
		ExpiresAt:     &expires,
		IsPublic:      true,
		ShareableLink: "link",
		Collaborators: []string{"c1"},
		Settings:      entity.DefaultSettings(),
		Questions: []entity.Question{
			{ID: "own", SurveyID: "s1", Type: entity.MultipleChoice, Text: "Own?", Options: []string{"Yes", "No"}, Required: true, Order: 0},
			{
				ID: "rate", SurveyID: "s1", Type: entity.Rating, Text: "Rate", Order: 1,
				BranchLogic: &entity.BranchLogic{Condition: entity.ConditionEquals, Value: entity.ListValue("Yes"), ShowQuestionID: "own"},
			},
		},
	}

	raw, err := bson.Marshal(toSurveyDoc(survey))
	require.NoError(t, err)

	var doc surveyDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))

	got := doc.entity()
	assert.Equal(t, survey.Questions, got.Questions)
	assert.Equal(t, survey.Settings, got.Settings)
	assert.Equal(t, survey.Collaborators, got.Collaborators)
	assert.True(t, expires.Equal(*got.ExpiresAt))
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestResponseDocumentRoundTrip(t *testing.T) {
	ip := "10.0.0.1"
	submitted := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	response := &entity.Response{
		ID:       "r1",
		SurveyID: "s1",
		Answers: []entity.Answer{
			{QuestionID: "a", Value: entity.TextValue("hello")},
			{QuestionID: "b", Value: entity.ListValue("x", "y")},
			{QuestionID: "c", Value: entity.NumberValue(5)},
			{QuestionID: "d", Value: entity.ListValue()},
		},
		SubmittedAt: submitted,
		IPAddress:   &ip,
	}

	raw, err := bson.Marshal(toResponseDoc(response))
	require.NoError(t, err)

	var doc responseDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))

	got := doc.entity()
	assert.Equal(t, response.Answers, got.Answers)
	assert.Equal(t, ip, *got.IPAddress)
	assert.Nil(t, got.StartedAt)
	assert.True(t, submitted.Equal(got.SubmittedAt))
}

func TestResponseDocumentOmitsMissingIP(t *testing.T) {
	raw, err := bson.Marshal(toResponseDoc(&entity.Response{ID: "r1", SurveyID: "s1"}))
	require.NoError(t, err)

	_, err = bson.Raw(raw).LookupErr("ip_address")
	assert.Error(t, err, "the partial unique index only applies to documents carrying an ip")
}

func TestDocumentsKeepAnalytics(t *testing.T) {
	survey := entity.NewSurvey("Cars", "", "owner")
	survey.Questions = []entity.Question{
		{ID: "own", Type: entity.MultipleChoice, Text: "Own?", Options: []string{"Yes", "No"}, Required: true},
		{ID: "rate", Type: entity.Rating, Text: "Rate", Order: 1, BranchLogic: &entity.BranchLogic{
			Condition: entity.ConditionEquals, Value: entity.TextValue("Yes"), ShowQuestionID: "own",
		}},
		{ID: "why", Type: entity.Text, Text: "Why?", Order: 2},
	}
	survey.Normalize()

	sets := []branch.Answers{
		{"own": entity.TextValue("Yes"), "rate": entity.NumberValue(5), "why": entity.TextValue("fast")},
		{"own": entity.ListValue("No"), "rate": entity.NumberValue(1)},
		{"own": entity.TextValue("Yes"), "rate": entity.NumberValue(2), "why": entity.TextValue("cheap")},
		{"why": entity.TextValue("nothing else")},
	}

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	questions := survey.OrderedQuestions()
	responses := make([]entity.Response, 0, len(sets))
	for i, set := range sets {
		pruned := branch.Prune(questions, set)

		var answers []entity.Answer
		for _, q := range questions {
			if v, ok := pruned[q.ID]; ok {
				answers = append(answers, entity.Answer{QuestionID: q.ID, Value: v})
			}
		}

		r := entity.NewResponse(survey.ID, answers, base.Add(time.Duration(i)*time.Minute))
		started := r.SubmittedAt.Add(-2 * time.Minute)
		r.StartedAt = &started
		responses = append(responses, *r)
	}

	raw, err := bson.Marshal(toSurveyDoc(survey))
	require.NoError(t, err)
	var surveyBack surveyDoc
	require.NoError(t, bson.Unmarshal(raw, &surveyBack))

	stored := make([]entity.Response, 0, len(responses))
	for i := range responses {
		raw, err := bson.Marshal(toResponseDoc(&responses[i]))
		require.NoError(t, err)

		var doc responseDoc
		require.NoError(t, bson.Unmarshal(raw, &doc))
		stored = append(stored, doc.entity())
	}

	want := analytics.Aggregate(survey, responses)
	got := analytics.Aggregate(surveyBack.entity(), stored)

	assert.Equal(t, want, got)
}
