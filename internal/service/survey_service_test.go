package service

import (
	"context"
	"testing"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func surveyInput() entity.SurveyInput {
	return entity.SurveyInput{
		Title:       "Lunch",
		Description: "Where do we eat",
		Questions: []entity.Question{
			{Type: entity.Dropdown, Text: "Place", Options: []string{" Pizza ", "Sushi"}, Required: true},
			{Type: entity.Text, Text: "Why?"},
		},
	}
}

func TestService_CreateSurvey(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("CreateSurvey", ctx, mock.AnythingOfType("*entity.Survey")).Return(nil)
		casher.On("AddToCash", mock.Anything, mock.Anything, mock.AnythingOfType("*entity.Survey")).Return(nil)
		publisher.On("Publish", ctx, mock.AnythingOfType("*entity.Survey"), entity.EventSurveyCreated, mock.Anything).Return(nil)

		survey, err := service.CreateSurvey(ctx, owner, surveyInput())

		require.NoError(t, err)
		assert.Equal(t, "owner", survey.CreatorID)
		assert.NotEmpty(t, survey.ID)
		assert.NotEmpty(t, survey.ShareableLink)
		require.Len(t, survey.Questions, 2)
		assert.Equal(t, []string{"Pizza", "Sushi"}, survey.Questions[0].Options)
		assert.Equal(t, 1, survey.Questions[1].Order)
		assert.Equal(t, survey.ID, survey.Questions[1].SurveyID)
		assert.Equal(t, entity.DefaultSettings(), survey.Settings)
	})

	t.Run("settings from input", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("CreateSurvey", ctx, mock.Anything).Return(nil)
		casher.On("AddToCash", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyCreated, mock.Anything).Return(nil)

		no := false
		in := surveyInput()
		in.IsPublic = &no
		in.Settings = &entity.SettingsInput{OneResponsePerIP: &no}

		survey, err := service.CreateSurvey(ctx, owner, in)

		require.NoError(t, err)
		assert.False(t, survey.IsPublic)
		assert.False(t, survey.Settings.OneResponsePerIP)
		assert.True(t, survey.Settings.AllowAnonymous)
	})

	t.Run("respondent may not author", func(t *testing.T) {
		service, _, _, _ := setupService(t)

		_, err := service.CreateSurvey(context.Background(), stranger, surveyInput())

		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("anonymous must sign in", func(t *testing.T) {
		service, _, _, _ := setupService(t)

		_, err := service.CreateSurvey(context.Background(), session.Anonymous(), surveyInput())

		assert.ErrorIs(t, err, entity.ErrUnauthenticated)
	})

	t.Run("missing title", func(t *testing.T) {
		service, _, _, _ := setupService(t)
		in := surveyInput()
		in.Title = "  "

		_, err := service.CreateSurvey(context.Background(), owner, in)

		assert.True(t, entity.IsValidation(err))
	})

	t.Run("branch cycle is rejected before storing", func(t *testing.T) {
		service, _, _, _ := setupService(t)
		in := surveyInput()
		in.Questions = []entity.Question{
			{ID: "a", Type: entity.Text, Text: "a", BranchLogic: &entity.BranchLogic{Condition: "equals", Value: entity.TextValue("x"), ShowQuestionID: "b"}},
			{ID: "b", Type: entity.Text, Text: "b", Order: 1, BranchLogic: &entity.BranchLogic{Condition: "equals", Value: entity.TextValue("x"), ShowQuestionID: "a"}},
		}

		_, err := service.CreateSurvey(context.Background(), owner, in)

		assert.True(t, entity.IsValidation(err))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("CreateSurvey", ctx, mock.Anything).Return(nil)
		casher.On("AddToCash", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyCreated, mock.Anything).Return(assert.AnError)

		_, err := service.CreateSurvey(ctx, owner, surveyInput())

		assert.NoError(t, err)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("CreateSurvey", ctx, mock.Anything).Return(entity.ErrStoreUnavailable)

		_, err := service.CreateSurvey(ctx, owner, surveyInput())

		assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
	})
}

func TestService_GetSurvey(t *testing.T) {
	t.Run("cache hit skips the store", func(t *testing.T) {
		service, casher, _, _ := setupService(t)
		ctx := context.Background()

		casher.On("GetCashFor", ctx, "s1", mock.AnythingOfType("*entity.Survey")).
			Run(func(args mock.Arguments) {
				cached := carSurvey()
				for i := range cached.Questions {
					cached.Questions[i].SurveyID = ""
				}
				*args.Get(2).(*entity.Survey) = *cached
			}).
			Return(nil)

		survey, err := service.GetSurvey(ctx, stranger, "s1")

		require.NoError(t, err)
		assert.Equal(t, "Cars", survey.Title)
		for _, q := range survey.Questions {
			assert.Equal(t, "s1", q.SurveyID)
		}
	})

	t.Run("cache miss reads the store and fills the cache", func(t *testing.T) {
		service, casher, repo, _ := setupService(t)
		ctx := context.Background()

		casher.On("GetCashFor", ctx, "s1", mock.Anything).Return(errCacheMiss)
		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		casher.On("AddToCash", mock.Anything, "s1", mock.AnythingOfType("*entity.Survey")).Return(nil)

		survey, err := service.GetSurvey(ctx, stranger, "s1")

		require.NoError(t, err)
		assert.Equal(t, "s1", survey.ID)
	})

	t.Run("not found", func(t *testing.T) {
		service, casher, repo, _ := setupService(t)
		ctx := context.Background()

		casher.On("GetCashFor", ctx, "nope", mock.Anything).Return(errCacheMiss)
		repo.On("GetSurvey", ctx, "nope").Return(nil, entity.ErrNotFound)

		_, err := service.GetSurvey(ctx, stranger, "nope")

		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("private survey hidden from strangers", func(t *testing.T) {
		service, casher, repo, _ := setupService(t)
		ctx := context.Background()
		private := carSurvey()
		private.IsPublic = false

		cacheMiss(casher)
		repo.On("GetSurvey", ctx, "s1").Return(private, nil)

		_, err := service.GetSurvey(ctx, stranger, "s1")
		assert.ErrorIs(t, err, entity.ErrForbidden)

		_, err = service.GetSurvey(ctx, collaborator, "s1")
		assert.NoError(t, err)
	})
}

func TestService_ListSurveys(t *testing.T) {
	service, _, repo, _ := setupService(t)
	ctx := context.Background()

	expired := fixedNow.Add(-1)
	surveys := []entity.Survey{
		{ID: "public", CreatorID: "x", IsPublic: true},
		{ID: "private", CreatorID: "owner"},
		{ID: "expired", CreatorID: "x", IsPublic: true, ExpiresAt: &expired},
		{ID: "shared", CreatorID: "x", Collaborators: []string{"owner"}},
	}
	repo.On("ListSurveys", ctx).Return(surveys, nil)

	ids := func(list []entity.Survey) []string {
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, s.ID)
		}
		return out
	}

	anon, err := service.ListSurveys(ctx, session.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, ids(anon))

	mine, err := service.ListSurveys(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "private", "shared"}, ids(mine))
}

func TestService_UpdateSurvey(t *testing.T) {
	t.Run("collaborator replaces questions", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		repo.On("UpdateSurvey", ctx, mock.MatchedBy(func(s *entity.Survey) bool {
			return s.Title == "Lunch" && len(s.Questions) == 2 && s.UpdatedAt.Equal(fixedNow)
		})).Return(nil)
		casher.On("RemoveFromCash", mock.Anything, "s1").Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyUpdated, "s1").Return(nil)

		survey, err := service.UpdateSurvey(ctx, collaborator, "s1", surveyInput())

		require.NoError(t, err)
		assert.Equal(t, "owner", survey.CreatorID)
		assert.Equal(t, []string{"helper"}, survey.Collaborators)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		_, err := service.UpdateSurvey(ctx, stranger, "s1", surveyInput())

		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("dangling branch reference", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		in := surveyInput()
		in.Questions[1].BranchLogic = &entity.BranchLogic{Condition: "equals", Value: entity.TextValue("x"), ShowQuestionID: "ghost"}

		_, err := service.UpdateSurvey(ctx, owner, "s1", in)

		assert.True(t, entity.IsValidation(err))
	})
}

func TestService_DeleteSurvey(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		repo.On("DeleteSurvey", ctx, "s1").Return(nil)
		casher.On("RemoveFromCash", mock.Anything, "s1").Return(nil)
		publisher.On("Publish", ctx, entity.SurveyDeleted{SurveyID: "s1"}, entity.EventSurveyDeleted, "s1").Return(nil)

		assert.NoError(t, service.DeleteSurvey(ctx, owner, "s1"))
	})

	t.Run("admin deletes", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		repo.On("DeleteSurvey", ctx, "s1").Return(nil)
		casher.On("RemoveFromCash", mock.Anything, "s1").Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyDeleted, "s1").Return(nil)

		assert.NoError(t, service.DeleteSurvey(ctx, admin, "s1"))
	})

	t.Run("collaborator may not delete", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		assert.ErrorIs(t, service.DeleteSurvey(ctx, collaborator, "s1"), entity.ErrForbidden)
	})
}

func TestService_AddCollaborator(t *testing.T) {
	t.Run("owner adds", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		repo.On("AddCollaborator", ctx, "s1", "new").Return(nil)
		casher.On("RemoveFromCash", mock.Anything, "s1").Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyUpdated, "s1").Return(nil)

		survey, err := service.AddCollaborator(ctx, owner, "s1", " new ")

		require.NoError(t, err)
		assert.Equal(t, []string{"helper", "new"}, survey.Collaborators)
	})

	t.Run("existing collaborator is a no-op", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		survey, err := service.AddCollaborator(ctx, owner, "s1", "helper")

		require.NoError(t, err)
		assert.Equal(t, []string{"helper"}, survey.Collaborators)
	})

	t.Run("only the creator adds", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		_, err := service.AddCollaborator(ctx, collaborator, "s1", "new")

		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("empty user id", func(t *testing.T) {
		service, _, _, _ := setupService(t)

		_, err := service.AddCollaborator(context.Background(), owner, "s1", "")

		assert.True(t, entity.IsValidation(err))
	})
}

func TestService_MoveQuestion(t *testing.T) {
	order := func(s *entity.Survey) []string {
		out := []string{}
		for _, q := range s.OrderedQuestions() {
			out = append(out, q.ID)
		}
		return out
	}

	t.Run("moves and renumbers", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)
		repo.On("UpdateSurvey", ctx, mock.Anything).Return(nil)
		casher.On("RemoveFromCash", mock.Anything, "s1").Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyUpdated, "s1").Return(nil)

		survey, err := service.MoveQuestion(ctx, owner, "s1", "score", 0)

		require.NoError(t, err)
		assert.Equal(t, []string{"score", "own", "brand"}, order(survey))
		for i, q := range survey.Questions {
			assert.Equal(t, i, q.Order)
		}
	})

	t.Run("unknown question", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		_, err := service.MoveQuestion(ctx, owner, "s1", "ghost", 0)

		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("index out of range", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("GetSurvey", ctx, "s1").Return(carSurvey(), nil)

		_, err := service.MoveQuestion(ctx, owner, "s1", "own", 3)

		assert.True(t, entity.IsValidation(err))
	})
}

func TestService_Templates(t *testing.T) {
	template := &entity.Template{
		ID:       "t1",
		Title:    "Feedback",
		Category: "work",
		Questions: []entity.Question{
			{ID: "q1", Type: entity.Rating, Text: "Score", Required: true},
			{ID: "q2", Type: entity.Text, Text: "Why low?", Order: 1, BranchLogic: &entity.BranchLogic{
				Condition: "equals", Value: entity.NumberValue(1), ShowQuestionID: "q1",
			}},
		},
	}

	t.Run("list by category", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("ListTemplates", ctx, "work").Return([]entity.Template{*template}, nil)

		list, err := service.ListTemplates(ctx, " work ")

		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("use template", func(t *testing.T) {
		service, casher, repo, publisher := setupService(t)
		ctx := context.Background()

		repo.On("GetTemplate", ctx, "t1").Return(template, nil)
		repo.On("CreateSurvey", ctx, mock.Anything).Return(nil)
		repo.On("IncrementTemplatePopularity", ctx, "t1").Return(assert.AnError)
		casher.On("AddToCash", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher.On("Publish", ctx, mock.Anything, entity.EventSurveyCreated, mock.Anything).Return(nil)

		survey, err := service.UseTemplate(ctx, owner, "t1")

		require.NoError(t, err)
		assert.Equal(t, "Feedback (Copy)", survey.Title)
		assert.Equal(t, "owner", survey.CreatorID)
		require.Len(t, survey.Questions, 2)
		assert.NotEqual(t, "q1", survey.Questions[0].ID)
		assert.Equal(t, survey.Questions[0].ID, survey.Questions[1].BranchLogic.ShowQuestionID)
	})

	t.Run("create needs admin", func(t *testing.T) {
		service, _, _, _ := setupService(t)

		_, err := service.CreateTemplate(context.Background(), owner, &entity.Template{Title: "x"})

		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("admin creates", func(t *testing.T) {
		service, _, repo, _ := setupService(t)
		ctx := context.Background()

		repo.On("CreateTemplate", ctx, mock.AnythingOfType("*entity.Template")).Return(nil)

		created, err := service.CreateTemplate(ctx, admin, &entity.Template{
			Title:      "NPS",
			Popularity: 99,
			Questions:  []entity.Question{{Type: entity.Rating, Text: "Recommend us?"}},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Zero(t, created.Popularity)
		assert.NotEmpty(t, created.Questions[0].ID)
	})
}
