package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Koyo-os/survey-service/internal/access"
	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// prepare normalizes a survey and runs every save-time check on it
func prepare(survey *entity.Survey) error {
	survey.Normalize()

	if err := survey.Validate(); err != nil {
		return err
	}

	return branch.Validate(survey.Questions)
}

func (s *Service) CreateSurvey(ctx context.Context, sess session.Session, in entity.SurveyInput) (*entity.Survey, error) {
	if !access.CanCreate(sess) {
		return nil, denied(sess)
	}

	survey := entity.NewSurvey(in.Title, in.Description, sess.UserID)
	in.ApplyTo(survey)

	if err := prepare(survey); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSurvey(ctx, survey); err != nil {
		return nil, err
	}

	s.logger.Info("survey created",
		zap.String("survey_id", survey.ID),
		zap.String("creator_id", survey.CreatorID),
		zap.Int("questions", len(survey.Questions)))

	s.cacheSurvey(survey)
	s.publish(ctx, survey, entity.EventSurveyCreated, survey.ID)

	return survey, nil
}

// GetSurvey returns the survey definition when sess may see it
func (s *Service) GetSurvey(ctx context.Context, sess session.Session, id string) (*entity.Survey, error) {
	survey, err := s.loadSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	if !access.CanView(sess, survey) {
		return nil, entity.ErrForbidden
	}

	return survey, nil
}

// ListSurveys returns the surveys sess may see, newest first
func (s *Service) ListSurveys(ctx context.Context, sess session.Session) ([]entity.Survey, error) {
	surveys, err := s.repo.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]entity.Survey, 0, len(surveys))
	for i := range surveys {
		if access.CanList(sess, &surveys[i], now) {
			out = append(out, surveys[i])
		}
	}

	return out, nil
}

func (s *Service) UpdateSurvey(ctx context.Context, sess session.Session, id string, in entity.SurveyInput) (*entity.Survey, error) {
	survey, err := s.editable(ctx, sess, id, access.CanEdit)
	if err != nil {
		return nil, err
	}

	in.ApplyTo(survey)
	survey.UpdatedAt = s.now()

	if err = prepare(survey); err != nil {
		return nil, err
	}

	return survey, s.saveSurvey(ctx, survey)
}

// saveSurvey stores an edited survey, drops the cached copy and announces the change
func (s *Service) saveSurvey(ctx context.Context, survey *entity.Survey) error {
	if err := s.repo.UpdateSurvey(ctx, survey); err != nil {
		return err
	}

	s.evictSurvey(survey.ID)
	s.publish(ctx, survey, entity.EventSurveyUpdated, survey.ID)

	return nil
}

func (s *Service) DeleteSurvey(ctx context.Context, sess session.Session, id string) error {
	if _, err := s.editable(ctx, sess, id, access.CanDelete); err != nil {
		return err
	}

	if err := s.repo.DeleteSurvey(ctx, id); err != nil {
		return err
	}

	s.logger.Info("survey deleted",
		zap.String("survey_id", id),
		zap.String("user_id", sess.UserID))

	s.evictSurvey(id)
	s.publish(ctx, entity.SurveyDeleted{SurveyID: id}, entity.EventSurveyDeleted, id)

	return nil
}

// AddCollaborator grants userID edit rights. Adding an existing collaborator is a no-op.
func (s *Service) AddCollaborator(ctx context.Context, sess session.Session, id, userID string) (*entity.Survey, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, entity.NewValidationError("", "user id is required")
	}

	survey, err := s.editable(ctx, sess, id, access.CanAddCollaborator)
	if err != nil {
		return nil, err
	}

	if survey.IsCollaborator(userID) {
		return survey, nil
	}

	if err = s.repo.AddCollaborator(ctx, id, userID); err != nil {
		return nil, err
	}
	survey.Collaborators = append(survey.Collaborators, userID)

	s.evictSurvey(id)
	s.publish(ctx, survey, entity.EventSurveyUpdated, id)

	return survey, nil
}

// MoveQuestion puts questionID at newIndex in display order and renumbers
// every question
func (s *Service) MoveQuestion(ctx context.Context, sess session.Session, id, questionID string, newIndex int) (*entity.Survey, error) {
	survey, err := s.editable(ctx, sess, id, access.CanEdit)
	if err != nil {
		return nil, err
	}

	ordered := survey.OrderedQuestions()
	from := slices.IndexFunc(ordered, func(q entity.Question) bool { return q.ID == questionID })
	if from < 0 {
		return nil, fmt.Errorf("question %s: %w", questionID, entity.ErrNotFound)
	}
	if newIndex < 0 || newIndex >= len(ordered) {
		return nil, entity.NewValidationError(questionID, "index %d out of range [0, %d)", newIndex, len(ordered))
	}

	moved := ordered[from]
	ordered = slices.Delete(ordered, from, from+1)
	ordered = slices.Insert(ordered, newIndex, moved)
	for i := range ordered {
		ordered[i].Order = i
	}

	survey.Questions = ordered
	survey.UpdatedAt = s.now()

	return survey, s.saveSurvey(ctx, survey)
}

// ListTemplates returns the templates of category, or all when it is empty
func (s *Service) ListTemplates(ctx context.Context, category string) ([]entity.Template, error) {
	return s.repo.ListTemplates(ctx, strings.TrimSpace(category))
}

// UseTemplate creates a survey owned by sess from a template
func (s *Service) UseTemplate(ctx context.Context, sess session.Session, templateID string) (*entity.Survey, error) {
	if !access.CanCreate(sess) {
		return nil, denied(sess)
	}

	template, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	survey := template.Instantiate(sess.UserID)
	if err = prepare(survey); err != nil {
		return nil, err
	}

	if err = s.repo.CreateSurvey(ctx, survey); err != nil {
		return nil, err
	}

	// the survey exists either way, a lost popularity tick is only logged
	if err = s.repo.IncrementTemplatePopularity(ctx, templateID); err != nil {
		s.logger.Warn("failed to bump template popularity",
			zap.String("template_id", templateID),
			zap.Error(err))
	}

	s.cacheSurvey(survey)
	s.publish(ctx, survey, entity.EventSurveyCreated, survey.ID)

	return survey, nil
}

// CreateTemplate stores a new template; only admins curate templates
func (s *Service) CreateTemplate(ctx context.Context, sess session.Session, template *entity.Template) (*entity.Template, error) {
	if !sess.IsAdmin() {
		return nil, denied(sess)
	}

	template.ID = uuid.NewString()
	template.Popularity = 0
	template.CreatedAt = s.now()

	probe := entity.Survey{
		ID:        template.ID,
		CreatorID: sess.UserID,
		Title:     template.Title,
		Questions: template.Questions,
	}
	if err := prepare(&probe); err != nil {
		return nil, err
	}
	template.Questions = probe.Questions

	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}

	return template, nil
}
