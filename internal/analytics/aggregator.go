// Package analytics derives survey statistics from stored responses.
package analytics

import (
	"slices"
	"sort"
	"strconv"

	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/montanaflynn/stats"
)

var ratingLabels = func() []string {
	labels := make([]string, 0, entity.RatingMax-entity.RatingMin+1)
	for v := entity.RatingMin; v <= entity.RatingMax; v++ {
		labels = append(labels, strconv.Itoa(v))
	}
	return labels
}()

// Aggregate computes the analytics of survey over responses. It reads nothing
// but its arguments, so the same input always yields the same output.
func Aggregate(survey *entity.Survey, responses []entity.Response) entity.SurveyAnalytics {
	questions := survey.OrderedQuestions()

	ordered := slices.Clone(responses)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	answerSets := make([]branch.Answers, len(ordered))
	for i := range ordered {
		answerSets[i] = branch.FromResponse(&ordered[i])
	}

	out := entity.SurveyAnalytics{
		SurveyID:          survey.ID,
		TotalResponses:    len(ordered),
		CompletionRate:    completionRate(questions, answerSets),
		AverageTimeSpent:  averageMinutes(ordered),
		QuestionAnalytics: make([]entity.QuestionAnalytics, 0, len(questions)),
	}

	for _, q := range questions {
		out.QuestionAnalytics = append(out.QuestionAnalytics, analyzeQuestion(q, answerSets))
	}

	return out
}

// completionRate counts a response as complete when every required question
// reachable under its own answers was answered
func completionRate(questions []entity.Question, answerSets []branch.Answers) float64 {
	if len(answerSets) == 0 {
		return 0
	}

	complete := 0
	for _, answers := range answerSets {
		if branch.Complete(questions, answers) {
			complete++
		}
	}

	return float64(complete) / float64(len(answerSets))
}

func averageMinutes(responses []entity.Response) float64 {
	var minutes stats.Float64Data
	for i := range responses {
		if d, ok := responses[i].Duration(); ok {
			minutes = append(minutes, d.Minutes())
		}
	}

	if len(minutes) == 0 {
		return 0
	}

	mean, err := stats.Mean(minutes)
	if err != nil {
		return 0
	}
	return mean
}

func analyzeQuestion(q entity.Question, answerSets []branch.Answers) entity.QuestionAnalytics {
	qa := entity.QuestionAnalytics{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Type:         q.Type,
	}

	switch q.Type {
	case entity.MultipleChoice, entity.Dropdown:
		qa.Data = choiceData(q, answerSets)
	case entity.Rating:
		qa.Data = ratingData(q, answerSets)
	case entity.Text:
		qa.Data = textData(q, answerSets)
	}

	return qa
}

func choiceData(q entity.Question, answerSets []branch.Answers) entity.QuestionData {
	index := make(map[string]int, len(q.Options))
	for i, opt := range q.Options {
		if _, dup := index[opt]; !dup {
			index[opt] = i
		}
	}

	values := make([]int, len(q.Options))
	for _, answers := range answerSets {
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		for _, choice := range v.Choices() {
			if i, known := index[choice]; known {
				values[i]++
			}
		}
	}

	return entity.QuestionData{
		Labels: slices.Clone(q.Options),
		Values: values,
	}
}

func ratingData(q entity.Question, answerSets []branch.Answers) entity.QuestionData {
	values := make([]int, len(ratingLabels))

	var ratings stats.Float64Data
	for _, answers := range answerSets {
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		r, ok := v.Rating()
		if !ok || r < entity.RatingMin || r > entity.RatingMax {
			continue
		}
		values[r-entity.RatingMin]++
		ratings = append(ratings, float64(r))
	}

	data := entity.QuestionData{
		Labels: slices.Clone(ratingLabels),
		Values: values,
	}

	if len(ratings) > 0 {
		if mean, err := stats.Mean(ratings); err == nil {
			data.Average = &mean
		}
	}

	return data
}

func textData(q entity.Question, answerSets []branch.Answers) entity.QuestionData {
	responses := []string{}
	for _, answers := range answerSets {
		v, ok := answers[q.ID]
		if !ok || v.Kind != entity.KindText {
			continue
		}
		responses = append(responses, v.Text)
	}

	return entity.QuestionData{Responses: responses}
}
