package branch

import (
	"errors"
	"fmt"

	"github.com/Koyo-os/survey-service/internal/entity"
)

var (
	ErrSelfReference   = errors.New("branch logic references its own question")
	ErrUnknownTarget   = errors.New("branch logic references an unknown question")
	ErrCycle           = errors.New("branch logic forms a cycle")
	ErrUnknownOperator = errors.New("unsupported branch condition")
)

// Validate checks the branch graph of a survey before it is saved: every
// controller must be another question of the same survey and no question may
// depend on itself, directly or through other questions.
func Validate(questions []entity.Question) error {
	byID := make(map[string]entity.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var issues []entity.Issue
	for _, q := range questions {
		bl := q.BranchLogic
		if bl.IsEmpty() {
			continue
		}

		switch {
		case bl.Condition != entity.ConditionEquals:
			issues = append(issues, issue(q.ID, ErrUnknownOperator, bl.Condition))
		case bl.ShowQuestionID == q.ID:
			issues = append(issues, issue(q.ID, ErrSelfReference, ""))
		case bl.ShowQuestionID == "":
			issues = append(issues, issue(q.ID, ErrUnknownTarget, ""))
		default:
			if _, ok := byID[bl.ShowQuestionID]; !ok {
				issues = append(issues, issue(q.ID, ErrUnknownTarget, bl.ShowQuestionID))
			}
		}
	}

	if len(issues) > 0 {
		return &entity.ValidationError{Issues: issues}
	}

	if cycle := findCycle(questions, byID); cycle != "" {
		return &entity.ValidationError{Issues: []entity.Issue{issue(cycle, ErrCycle, "")}}
	}

	return nil
}

// findCycle follows each question's single controller edge and returns the id
// of a question that lies on a cycle, or "" when the graph is acyclic
func findCycle(questions []entity.Question, byID map[string]entity.Question) string {
	const (
		unvisited = iota
		inPath
		done
	)

	state := make(map[string]int, len(questions))

	for _, start := range questions {
		if state[start.ID] != unvisited {
			continue
		}

		var path []string
		id := start.ID
		for {
			if state[id] == inPath {
				return id
			}
			if state[id] == done {
				break
			}

			state[id] = inPath
			path = append(path, id)

			q, ok := byID[id]
			if !ok || q.BranchLogic.IsEmpty() || q.BranchLogic.ShowQuestionID == "" {
				break
			}
			id = q.BranchLogic.ShowQuestionID
		}

		for _, p := range path {
			state[p] = done
		}
	}

	return ""
}

func issue(questionID string, err error, detail string) entity.Issue {
	msg := err.Error()
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return entity.Issue{QuestionID: questionID, Message: msg}
}
