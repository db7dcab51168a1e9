// Package repository provides data persistence functionality using GORM
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Close releases the underlying connection pool
func (repo *Repository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsHealthy pings the database
func (repo *Repository) IsHealthy() bool {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

func questionsInOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("position")
}

// CreateSurvey persists a survey together with its questions
func (repo *Repository) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	if err := repo.db.WithContext(ctx).Create(survey).Error; err != nil {
		return repo.fail("error create survey", err, zap.String("survey_id", survey.ID))
	}
	return nil
}

// GetSurvey retrieves a survey by its ID with its questions in display order
func (repo *Repository) GetSurvey(ctx context.Context, id string) (*entity.Survey, error) {
	var survey entity.Survey

	res := repo.db.WithContext(ctx).
		Preload("Questions", questionsInOrder).
		Where("id = ?", id).
		First(&survey)
	if err := res.Error; err != nil {
		return nil, repo.fail("error get survey", err, zap.String("survey_id", id))
	}

	return &survey, nil
}

// ListSurveys returns every survey, newest first. Visibility is decided by the caller.
func (repo *Repository) ListSurveys(ctx context.Context) ([]entity.Survey, error) {
	var surveys []entity.Survey

	res := repo.db.WithContext(ctx).
		Preload("Questions", questionsInOrder).
		Order("created_at DESC").
		Order("id").
		Find(&surveys)
	if err := res.Error; err != nil {
		return nil, repo.fail("error list surveys", err)
	}

	return surveys, nil
}

// UpdateSurvey overwrites the editable columns of a survey and replaces its
// question set in one transaction
func (repo *Repository) UpdateSurvey(ctx context.Context, survey *entity.Survey) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.Survey
		if err := tx.Select("id").Where("id = ?", survey.ID).First(&existing).Error; err != nil {
			return err
		}

		res := tx.Model(&entity.Survey{ID: survey.ID}).
			Select("*").
			Omit("id", "created_at", "creator_id", "shareable_link", clause.Associations).
			Updates(survey)
		if res.Error != nil {
			return res.Error
		}

		if err := tx.Where("survey_id = ?", survey.ID).Delete(&entity.Question{}).Error; err != nil {
			return err
		}

		if len(survey.Questions) == 0 {
			return nil
		}
		return tx.Create(&survey.Questions).Error
	})
	if err != nil {
		return repo.fail("error update survey", err, zap.String("survey_id", survey.ID))
	}

	return nil
}

// DeleteSurvey removes a survey with its questions and responses
func (repo *Repository) DeleteSurvey(ctx context.Context, id string) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("survey_id = ?", id).Delete(&entity.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", id).Delete(&entity.Question{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&entity.Survey{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return repo.fail("error delete survey", err, zap.String("survey_id", id))
	}

	return nil
}

// AddCollaborator adds userID to the survey's collaborators. Adding an
// existing collaborator is a no-op.
func (repo *Repository) AddCollaborator(ctx context.Context, surveyID, userID string) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey entity.Survey
		if err := tx.Select("id", "collaborators").Where("id = ?", surveyID).First(&survey).Error; err != nil {
			return err
		}

		if slices.Contains(survey.Collaborators, userID) {
			return nil
		}

		collaborators := append(survey.Collaborators, userID)
		return tx.Model(&entity.Survey{ID: surveyID}).Update("collaborators", collaborators).Error
	})
	if err != nil {
		return repo.fail("error add collaborator", err,
			zap.String("survey_id", surveyID),
			zap.String("user_id", userID))
	}

	return nil
}

// CreateResponse stores a submission. A second response from the same IP
// address to the same survey is rejected by the store.
func (repo *Repository) CreateResponse(ctx context.Context, response *entity.Response) error {
	err := repo.db.WithContext(ctx).Create(response).Error
	if err == nil {
		return nil
	}

	if isDuplicate(err) {
		repo.logger.Info("duplicate response rejected",
			zap.String("survey_id", response.SurveyID))
		return entity.ErrAlreadyResponded
	}

	return repo.fail("error create response", err, zap.String("survey_id", response.SurveyID))
}

// ListResponses returns the responses of a survey ordered by submission time
func (repo *Repository) ListResponses(ctx context.Context, surveyID string) ([]entity.Response, error) {
	var responses []entity.Response

	res := repo.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("submitted_at").
		Order("id").
		Find(&responses)
	if err := res.Error; err != nil {
		return nil, repo.fail("error list responses", err, zap.String("survey_id", surveyID))
	}

	return responses, nil
}

// CountResponses returns how many responses a survey has
func (repo *Repository) CountResponses(ctx context.Context, surveyID string) (int64, error) {
	var count int64

	res := repo.db.WithContext(ctx).
		Model(&entity.Response{}).
		Where("survey_id = ?", surveyID).
		Count(&count)
	if err := res.Error; err != nil {
		return 0, repo.fail("error count responses", err, zap.String("survey_id", surveyID))
	}

	return count, nil
}

// fail logs a store error and converts it into the domain error the service expects
func (repo *Repository) fail(msg string, err error, fields ...zap.Field) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", msg, entity.ErrNotFound)
	}

	repo.logger.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w: %w", msg, entity.ErrStoreUnavailable, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}
