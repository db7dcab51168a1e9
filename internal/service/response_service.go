package service

import (
	"context"
	"net/mail"
	"slices"
	"strings"

	"github.com/Koyo-os/survey-service/internal/access"
	"github.com/Koyo-os/survey-service/internal/analytics"
	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const SubmitMessage = "Response submitted successfully"

// VisibleQuestions returns the questions shown for the answers given so far,
// in display order
func (s *Service) VisibleQuestions(ctx context.Context, sess session.Session, id string, answers branch.Answers) ([]entity.Question, error) {
	survey, err := s.GetSurvey(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	return branch.Visible(survey.OrderedQuestions(), answers), nil
}

// SubmitResponse validates and stores one submission. Answers to questions
// hidden by branch logic are dropped before the required check.
func (s *Service) SubmitResponse(ctx context.Context, sess session.Session, id string, in entity.SubmissionInput) (*entity.SubmitReceipt, error) {
	survey, err := s.loadSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err = access.CanTake(sess, survey, now); err != nil {
		return nil, err
	}

	email, err := respondentEmail(sess, survey, in.RespondentEmail)
	if err != nil {
		return nil, err
	}

	answers, err := checkAnswers(survey, in.Answers)
	if err != nil {
		return nil, err
	}

	questions := survey.OrderedQuestions()
	answers = branch.Prune(questions, answers)

	if missing := branch.MissingRequired(questions, answers); len(missing) > 0 {
		issues := make([]entity.Issue, len(missing))
		for i, q := range missing {
			issues[i] = entity.Issue{QuestionID: q.ID, Message: "answer is required"}
		}
		return nil, &entity.ValidationError{Issues: issues}
	}

	stored := make([]entity.Answer, 0, len(answers))
	for _, q := range questions {
		if v, ok := answers[q.ID]; ok {
			stored = append(stored, entity.Answer{QuestionID: q.ID, Value: v})
		}
	}

	response := entity.NewResponse(survey.ID, stored, now)
	response.RespondentEmail = email
	if sess.IsAuthenticated() {
		response.RespondentID = sess.UserID
	}
	if in.StartedAt != nil && !in.StartedAt.After(now) {
		started := in.StartedAt.UTC()
		response.StartedAt = &started
	}
	if ip := strings.TrimSpace(in.IPAddress); survey.Settings.OneResponsePerIP && ip != "" {
		response.IPAddress = &ip
	}

	if err = s.repo.CreateResponse(ctx, response); err != nil {
		return nil, err
	}

	s.logger.Info("response submitted",
		zap.String("survey_id", survey.ID),
		zap.String("response_id", response.ID),
		zap.Int("answers", len(stored)))

	s.publish(ctx, entity.ResponseSubmitted{
		SurveyID:    survey.ID,
		ResponseID:  response.ID,
		SubmittedAt: response.SubmittedAt,
	}, entity.EventResponseSubmitted, survey.ID)

	thankYou := survey.Settings.CustomThankYou
	if strings.TrimSpace(thankYou) == "" {
		thankYou = entity.DefaultThankYou
	}

	return &entity.SubmitReceipt{
		ResponseID:     response.ID,
		Message:        SubmitMessage,
		ThankYou:       thankYou,
		ResultsVisible: survey.Settings.ShowResults,
	}, nil
}

// respondentEmail returns the email to store, empty when the survey does not collect one
func respondentEmail(sess session.Session, survey *entity.Survey, sent string) (string, error) {
	if !survey.Settings.CollectEmail {
		return "", nil
	}

	email := strings.TrimSpace(sent)
	if email == "" {
		email = sess.Email
	}
	if email == "" {
		return "", entity.NewValidationError("", "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", entity.NewValidationError("", "invalid email %q", email)
	}

	return addr.Address, nil
}

// checkAnswers rejects answers that do not fit their question and returns
// the rest keyed by question id. Blank answers count as not given.
func checkAnswers(survey *entity.Survey, answers []entity.Answer) (branch.Answers, error) {
	out := make(branch.Answers, len(answers))
	seen := make(map[string]bool, len(answers))
	var issues []entity.Issue

	for _, a := range answers {
		q, ok := survey.Question(a.QuestionID)
		if !ok {
			issues = append(issues, entity.Issue{QuestionID: a.QuestionID, Message: "unknown question"})
			continue
		}
		if seen[a.QuestionID] {
			issues = append(issues, entity.Issue{QuestionID: a.QuestionID, Message: "answered more than once"})
			continue
		}
		seen[a.QuestionID] = true

		if a.Value.IsBlank() {
			continue
		}
		if msg := checkValue(q, a.Value); msg != "" {
			issues = append(issues, entity.Issue{QuestionID: a.QuestionID, Message: msg})
			continue
		}

		out[a.QuestionID] = a.Value
	}

	if len(issues) > 0 {
		return nil, &entity.ValidationError{Issues: issues}
	}
	return out, nil
}

func checkValue(q entity.Question, v entity.AnswerValue) string {
	switch q.Type {
	case entity.Text:
		if v.Kind != entity.KindText {
			return "text answer expected"
		}

	case entity.Rating:
		r, ok := v.Rating()
		if !ok || r < entity.RatingMin || r > entity.RatingMax {
			return "rating must be a whole number from 1 to 5"
		}

	case entity.Dropdown:
		if v.Kind != entity.KindText {
			return "single option expected"
		}
		if !slices.Contains(q.Options, v.Text) {
			return "unknown option " + v.Text
		}

	case entity.MultipleChoice:
		if v.Kind != entity.KindText && v.Kind != entity.KindList {
			return "option or list of options expected"
		}
		for _, c := range v.Choices() {
			if !slices.Contains(q.Options, c) {
				return "unknown option " + c
			}
		}
	}

	return ""
}

// Results lists the raw responses for editors
func (s *Service) Results(ctx context.Context, sess session.Session, id string) (*entity.Results, error) {
	survey, err := s.loadSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanViewResults(sess, survey) {
		return nil, denied(sess)
	}

	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}

	return &entity.Results{TotalResponses: len(responses), Responses: responses}, nil
}

// Analytics aggregates every stored response of the survey. Nothing is cached.
// Responses are only listed once the caller is allowed to see them.
func (s *Service) Analytics(ctx context.Context, sess session.Session, id string) (*entity.SurveyAnalytics, error) {
	var (
		survey *entity.Survey
		count  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		survey, err = s.loadSurvey(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		count, err = s.repo.CountResponses(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !access.CanViewAnalytics(sess, survey, int(count)) {
		if access.CanView(sess, survey) {
			return nil, entity.ErrResultsNotVisible
		}
		return nil, denied(sess)
	}

	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}

	result := analytics.Aggregate(survey, responses)
	return &result, nil
}
