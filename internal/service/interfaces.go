package service

import (
	"context"

	"github.com/Koyo-os/survey-service/internal/entity"
)

type (
	// Repository is the survey store; the gorm repository and the mongo store both satisfy it
	Repository interface {
		CreateSurvey(ctx context.Context, survey *entity.Survey) error
		GetSurvey(ctx context.Context, id string) (*entity.Survey, error)
		ListSurveys(ctx context.Context) ([]entity.Survey, error)
		UpdateSurvey(ctx context.Context, survey *entity.Survey) error
		DeleteSurvey(ctx context.Context, id string) error
		AddCollaborator(ctx context.Context, surveyID, userID string) error

		CreateResponse(ctx context.Context, response *entity.Response) error
		ListResponses(ctx context.Context, surveyID string) ([]entity.Response, error)
		CountResponses(ctx context.Context, surveyID string) (int64, error)

		ListTemplates(ctx context.Context, category string) ([]entity.Template, error)
		GetTemplate(ctx context.Context, id string) (*entity.Template, error)
		CreateTemplate(ctx context.Context, template *entity.Template) error
		IncrementTemplatePopularity(ctx context.Context, id string) error
	}

	Publisher interface {
		Publish(ctx context.Context, payload any, eventType, key string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, key string, payload any) error // payload must to be pointer
		GetCashFor(ctx context.Context, key string, out any) error
		RemoveFromCash(ctx context.Context, key string) error
	}
)
