package listener

import (
	"context"
	"testing"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateSurvey(ctx context.Context, sess session.Session, in entity.SurveyInput) (*entity.Survey, error) {
	args := m.Called(ctx, sess, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockService) UpdateSurvey(ctx context.Context, sess session.Session, id string, in entity.SurveyInput) (*entity.Survey, error) {
	args := m.Called(ctx, sess, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockService) DeleteSurvey(ctx context.Context, sess session.Session, id string) error {
	return m.Called(ctx, sess, id).Error(0)
}

func (m *MockService) SubmitResponse(ctx context.Context, sess session.Session, id string, in entity.SubmissionInput) (*entity.SubmitReceipt, error) {
	args := m.Called(ctx, sess, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SubmitReceipt), args.Error(1)
}

func setupListener() (*Listener, *MockService, chan entity.Event, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	input := make(chan entity.Event)
	svc := &MockService{}

	return Init(input, &logger.Logger{Logger: zap.New(core)}, config.Default(), svc), svc, input, recorded
}

func event(t string, payload string) entity.Event {
	return *entity.NewEvent(t, []byte(payload))
}

var creator = session.Session{UserID: "u1", Role: session.RoleCreator}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		l, svc, _, _ := setupListener()
		svc.On("CreateSurvey", mock.Anything, creator, mock.MatchedBy(func(in entity.SurveyInput) bool {
			return in.Title == "Cars" && len(in.Questions) == 1
		})).Return(&entity.Survey{ID: "s1"}, nil)

		err := l.Handle(ctx, event("survey.create",
			`{"actor":{"user_id":"u1","role":"creator"},"survey":{"title":"Cars","questions":[{"type":"text","text":"Why?"}]}}`))

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("update needs survey id", func(t *testing.T) {
		l, svc, _, _ := setupListener()

		err := l.Handle(ctx, event("survey.update", `{"actor":{"user_id":"u1","role":"creator"},"survey":{"title":"x"}}`))

		assert.ErrorContains(t, err, "survey_id")
		svc.AssertNotCalled(t, "UpdateSurvey")
	})

	t.Run("update", func(t *testing.T) {
		l, svc, _, _ := setupListener()
		svc.On("UpdateSurvey", mock.Anything, creator, "s1", mock.Anything).Return(&entity.Survey{ID: "s1"}, nil)

		err := l.Handle(ctx, event("survey.update", `{"actor":{"user_id":"u1","role":"creator"},"survey_id":"s1","survey":{"title":"x"}}`))

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("delete with unknown role acts as respondent", func(t *testing.T) {
		l, svc, _, _ := setupListener()
		svc.On("DeleteSurvey", mock.Anything, session.Session{UserID: "u1", Role: session.RoleRespondent}, "s1").
			Return(entity.ErrForbidden)

		err := l.Handle(ctx, event("survey.delete", `{"actor":{"user_id":"u1","role":"superuser"},"survey_id":"s1"}`))

		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("submit carries the ip", func(t *testing.T) {
		l, svc, _, _ := setupListener()
		svc.On("SubmitResponse", mock.Anything, session.Anonymous(), "s1", mock.MatchedBy(func(in entity.SubmissionInput) bool {
			return in.IPAddress == "192.0.2.4" && len(in.Answers) == 1 && in.Answers[0].Value.Equal(entity.NumberValue(3))
		})).Return(&entity.SubmitReceipt{ResponseID: "r1"}, nil)

		err := l.Handle(ctx, event("response.submit",
			`{"actor":{},"survey_id":"s1","ip_address":"192.0.2.4","response":{"answers":[{"questionId":"q1","value":3}]}}`))

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("bad payload", func(t *testing.T) {
		l, _, _, _ := setupListener()

		err := l.Handle(ctx, event("survey.create", `not json`))

		assert.ErrorContains(t, err, "unmarshal")
	})

	t.Run("unknown type is skipped", func(t *testing.T) {
		l, _, _, logs := setupListener()

		err := l.Handle(ctx, event("survey.archive", `{}`))

		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("unknown event type, skipping").Len())
	})
}

func TestListen(t *testing.T) {
	l, svc, input, logs := setupListener()
	svc.On("DeleteSurvey", mock.Anything, mock.Anything, "s1").Return(entity.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Listen(ctx)
		close(done)
	}()

	input <- event("survey.delete", `{"actor":{"user_id":"u1","role":"admin"},"survey_id":"s1"}`)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}

	assert.Equal(t, 1, logs.FilterMessage("error handle event").Len())
	svc.AssertExpectations(t)
}
