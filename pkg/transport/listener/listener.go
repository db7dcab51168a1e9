// Package listener dispatches request events from the bus to the survey service
package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"go.uber.org/zap"
)

// Service is the part of the survey service reachable over the bus
type Service interface {
	CreateSurvey(ctx context.Context, sess session.Session, in entity.SurveyInput) (*entity.Survey, error)
	UpdateSurvey(ctx context.Context, sess session.Session, id string, in entity.SurveyInput) (*entity.Survey, error)
	DeleteSurvey(ctx context.Context, sess session.Session, id string) error
	SubmitResponse(ctx context.Context, sess session.Session, id string, in entity.SubmissionInput) (*entity.SubmitReceipt, error)
}

type Listener struct {
	inputChan chan entity.Event
	logger    *logger.Logger
	service   Service
	cfg       *config.Config
	timeout   time.Duration // per request
}

func Init(
	inputChan chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service Service,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		logger:    logger,
		cfg:       cfg,
		timeout:   30 * time.Second,
	}
}

// Listen handles events until ctx is done or the input channel is closed.
// A failed request is logged and does not stop the loop.
func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				list.logger.Info("input channel closed, stopping listener")
				return
			}

			if err := list.Handle(ctx, event); err != nil {
				list.logger.Error("error handle event",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

// Handle runs the request carried by one event
func (list *Listener) Handle(ctx context.Context, event entity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, list.timeout)
	defer cancel()

	switch event.Type {
	case list.cfg.Reqs.CreateRequestType:
		var req entity.SurveyRequest
		if err := event.DecodePayload(&req); err != nil {
			return fmt.Errorf("error unmarshal event payload to survey request: %w", err)
		}

		survey, err := list.service.CreateSurvey(ctx, session.FromActor(req.Actor), req.Survey)
		if err != nil {
			return fmt.Errorf("error create survey: %w", err)
		}
		list.logger.Debug("survey created from event",
			zap.String("event_id", event.ID),
			zap.String("survey_id", survey.ID))

	case list.cfg.Reqs.UpdateRequestType:
		var req entity.SurveyRequest
		if err := event.DecodePayload(&req); err != nil {
			return fmt.Errorf("error unmarshal event payload to survey request: %w", err)
		}
		if req.SurveyID == "" {
			return fmt.Errorf("update request without survey_id")
		}

		if _, err := list.service.UpdateSurvey(ctx, session.FromActor(req.Actor), req.SurveyID, req.Survey); err != nil {
			return fmt.Errorf("error update survey %s: %w", req.SurveyID, err)
		}

	case list.cfg.Reqs.DeleteRequestType:
		var req entity.DeleteSurveyRequest
		if err := event.DecodePayload(&req); err != nil {
			return fmt.Errorf("error unmarshal event payload to delete request: %w", err)
		}

		if err := list.service.DeleteSurvey(ctx, session.FromActor(req.Actor), req.SurveyID); err != nil {
			return fmt.Errorf("error delete survey %s: %w", req.SurveyID, err)
		}

	case list.cfg.Reqs.SubmitRequestType:
		var req entity.SubmitRequest
		if err := event.DecodePayload(&req); err != nil {
			return fmt.Errorf("error unmarshal event payload to submit request: %w", err)
		}
		req.Response.IPAddress = req.IPAddress

		receipt, err := list.service.SubmitResponse(ctx, session.FromActor(req.Actor), req.SurveyID, req.Response)
		if err != nil {
			return fmt.Errorf("error submit response to %s: %w", req.SurveyID, err)
		}
		list.logger.Debug("response stored from event",
			zap.String("event_id", event.ID),
			zap.String("response_id", receipt.ResponseID))

	default:
		list.logger.Warn("unknown event type, skipping",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID))
	}

	return nil
}
