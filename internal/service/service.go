// Package service implements the survey use cases on top of the store, the
// cache and the event bus
package service

import (
	"context"
	"sync"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/Koyo-os/survey-service/pkg/retrier"
	"go.uber.org/zap"
)

type Service struct {
	casher    Casher
	repo      Repository
	publisher Publisher
	logger    *logger.Logger

	timeout time.Duration // budget of background cache work
	now     func() time.Time
	bg      sync.WaitGroup
}

func Init(casher Casher, repo Repository, publisher Publisher, logger *logger.Logger, timeout time.Duration) *Service {
	return &Service{
		casher:    casher,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until background cache work has finished
func (s *Service) Wait() {
	s.bg.Wait()
}

// background runs fn with retries outside the request, bounded by s.timeout
func (s *Service) background(op, surveyID string, fn func(ctx context.Context) error) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		err := retrier.Do(3, 1, func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(ctx)
		})
		if err != nil {
			s.logger.Warn("cache update failed",
				zap.String("op", op),
				zap.String("survey_id", surveyID),
				zap.Error(err))
		}
	}()
}

func (s *Service) cacheSurvey(survey *entity.Survey) {
	s.background("set", survey.ID, func(ctx context.Context) error {
		return s.casher.AddToCash(ctx, survey.ID, survey)
	})
}

func (s *Service) evictSurvey(id string) {
	s.background("evict", id, func(ctx context.Context) error {
		return s.casher.RemoveFromCash(ctx, id)
	})
}

// publish emits an event. The change is already stored, so a bus failure is
// logged and not reported to the caller.
func (s *Service) publish(ctx context.Context, payload any, eventType, surveyID string) {
	if err := s.publisher.Publish(ctx, payload, eventType, surveyID); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("survey_id", surveyID),
			zap.Error(err))
	}
}

// loadSurvey reads through the cache; a cache failure falls back to the store
func (s *Service) loadSurvey(ctx context.Context, id string) (*entity.Survey, error) {
	var cached entity.Survey
	err := s.casher.GetCashFor(ctx, id, &cached)
	if err == nil && cached.ID == id {
		for i := range cached.Questions {
			cached.Questions[i].SurveyID = id
		}
		return &cached, nil
	}

	survey, err := s.repo.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSurvey(survey)
	return survey, nil
}

// denied picks the error for a refused operation
func denied(sess session.Session) error {
	if !sess.IsAuthenticated() {
		return entity.ErrUnauthenticated
	}
	return entity.ErrForbidden
}

// editable loads a survey straight from the store and checks that sess may change it
func (s *Service) editable(ctx context.Context, sess session.Session, id string, allowed func(session.Session, *entity.Survey) bool) (*entity.Survey, error) {
	survey, err := s.repo.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(sess, survey) {
		return nil, denied(sess)
	}
	return survey, nil
}

