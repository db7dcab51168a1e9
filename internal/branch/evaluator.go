// Package branch decides which questions of a survey a respondent gets to see.
//
// Every function here is a pure function of the questions and answers passed in.
// Callers re-evaluate after each answer change and never share state between calls.
package branch

import (
	"github.com/Koyo-os/survey-service/internal/entity"
)

// Answers maps a question id to the respondent's current answer
type Answers map[string]entity.AnswerValue

// FromResponse builds the answer map of a stored response
func FromResponse(r *entity.Response) Answers {
	return Answers(r.AnswerMap())
}

// IsVisible reports whether q is shown for the given answers. A question
// without branch logic is always shown. Otherwise the controlling question must
// be answered with exactly the configured value; a missing controller, an
// unknown condition or an unanswered controller keeps the question hidden.
func IsVisible(q entity.Question, answers Answers) bool {
	bl := q.BranchLogic
	if bl.IsEmpty() {
		return true
	}

	if bl.Condition != entity.ConditionEquals || bl.ShowQuestionID == "" {
		return false
	}

	got, ok := answers[bl.ShowQuestionID]
	if !ok {
		return false
	}

	return got.Equal(bl.Value)
}

// Visible returns the questions shown for answers, in input order
func Visible(questions []entity.Question, answers Answers) []entity.Question {
	out := make([]entity.Question, 0, len(questions))
	for _, q := range questions {
		if IsVisible(q, answers) {
			out = append(out, q)
		}
	}
	return out
}

// MissingRequired returns the visible required questions that have no usable answer.
// Hidden required questions never block a submission.
func MissingRequired(questions []entity.Question, answers Answers) []entity.Question {
	var missing []entity.Question
	for _, q := range Visible(questions, answers) {
		if !q.Required {
			continue
		}
		if v, ok := answers[q.ID]; !ok || v.IsBlank() {
			missing = append(missing, q)
		}
	}
	return missing
}

// Complete reports whether every visible required question is answered
func Complete(questions []entity.Question, answers Answers) bool {
	return len(MissingRequired(questions, answers)) == 0
}

// Prune drops answers to questions that are not visible. Dropping a stale
// answer can hide further questions, so it repeats until nothing changes.
// Answers to ids that are not questions of the survey are dropped as well.
func Prune(questions []entity.Question, answers Answers) Answers {
	current := make(Answers, len(answers))
	for id, v := range answers {
		current[id] = v
	}

	for {
		next := make(Answers, len(current))
		for _, q := range Visible(questions, current) {
			if v, ok := current[q.ID]; ok {
				next[q.ID] = v
			}
		}

		if len(next) == len(current) {
			return next
		}
		current = next
	}
}
