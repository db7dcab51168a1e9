package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/stretchr/testify/mock"
)

// MockCasher is a mock implementation of the Casher interface
type MockCasher struct {
	mock.Mock
}

func (m *MockCasher) AddToCash(ctx context.Context, key string, payload any) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

func (m *MockCasher) GetCashFor(ctx context.Context, key string, out any) error {
	args := m.Called(ctx, key, out)
	return args.Error(0)
}

func (m *MockCasher) RemoveFromCash(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	return m.Called(ctx, survey).Error(0)
}

func (m *MockRepository) GetSurvey(ctx context.Context, id string) (*entity.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockRepository) ListSurveys(ctx context.Context) ([]entity.Survey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Survey), args.Error(1)
}

func (m *MockRepository) UpdateSurvey(ctx context.Context, survey *entity.Survey) error {
	return m.Called(ctx, survey).Error(0)
}

func (m *MockRepository) DeleteSurvey(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) AddCollaborator(ctx context.Context, surveyID, userID string) error {
	return m.Called(ctx, surveyID, userID).Error(0)
}

func (m *MockRepository) CreateResponse(ctx context.Context, response *entity.Response) error {
	return m.Called(ctx, response).Error(0)
}

func (m *MockRepository) ListResponses(ctx context.Context, surveyID string) ([]entity.Response, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Response), args.Error(1)
}

func (m *MockRepository) CountResponses(ctx context.Context, surveyID string) (int64, error) {
	args := m.Called(ctx, surveyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListTemplates(ctx context.Context, category string) ([]entity.Template, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Template), args.Error(1)
}

func (m *MockRepository) GetTemplate(ctx context.Context, id string) (*entity.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Template), args.Error(1)
}

func (m *MockRepository) CreateTemplate(ctx context.Context, template *entity.Template) error {
	return m.Called(ctx, template).Error(0)
}

func (m *MockRepository) IncrementTemplatePopularity(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, payload any, eventType, key string) error {
	return m.Called(ctx, payload, eventType, key).Error(0)
}

var (
	errCacheMiss = errors.New("cache miss")
	fixedNow     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	owner        = session.Session{UserID: "owner", Role: session.RoleCreator}
	collaborator = session.Session{UserID: "helper", Role: session.RoleCreator}
	stranger     = session.Session{UserID: "someone", Role: session.RoleRespondent}
	admin        = session.Session{UserID: "root", Role: session.RoleAdmin}
)

func setupService(t *testing.T) (*Service, *MockCasher, *MockRepository, *MockPublisher) {
	t.Helper()

	mockCasher := &MockCasher{}
	mockRepo := &MockRepository{}
	mockPublisher := &MockPublisher{}

	service := Init(mockCasher, mockRepo, mockPublisher, logger.NewNop(), time.Second)
	service.now = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		service.Wait()
		mockRepo.AssertExpectations(t)
		mockCasher.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	return service, mockCasher, mockRepo, mockPublisher
}

// cacheMiss makes every cache read miss and accepts the write-back
func cacheMiss(c *MockCasher) {
	c.On("GetCashFor", mock.Anything, mock.Anything, mock.Anything).Return(errCacheMiss)
	c.On("AddToCash", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

// carSurvey has a required choice question gating a required text question
func carSurvey() *entity.Survey {
	return &entity.Survey{
		ID:            "s1",
		Title:         "Cars",
		CreatorID:     "owner",
		IsPublic:      true,
		Collaborators: []string{"helper"},
		Settings:      entity.DefaultSettings(),
		Questions: []entity.Question{
			{ID: "own", SurveyID: "s1", Type: entity.MultipleChoice, Text: "Do you own a car?", Options: []string{"Yes", "No"}, Required: true, Order: 0},
			{ID: "brand", SurveyID: "s1", Type: entity.Text, Text: "Which brand?", Required: true, Order: 1, BranchLogic: &entity.BranchLogic{
				Condition:      entity.ConditionEquals,
				Value:          entity.TextValue("Yes"),
				ShowQuestionID: "own",
			}},
			{ID: "score", SurveyID: "s1", Type: entity.Rating, Text: "How happy are you?", Order: 2},
		},
	}
}
