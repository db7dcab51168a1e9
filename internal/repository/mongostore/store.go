// Package mongostore keeps surveys, responses and templates in MongoDB. It
// offers the same operations as the SQL repository.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	SurveyCollection   = "surveys"
	ResponseCollection = "responses"
	TemplateCollection = "survey_templates"
)

type Store struct {
	client    *mongo.Client
	surveys   *mongo.Collection
	responses *mongo.Collection
	templates *mongo.Collection
	logger    *logger.Logger
}

// Connect dials MongoDB and verifies the connection
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

// Init binds the store to database dbName and makes sure its indexes exist
func Init(ctx context.Context, client *mongo.Client, dbName string, logger *logger.Logger) (*Store, error) {
	db := client.Database(dbName)

	store := &Store{
		client:    client,
		surveys:   db.Collection(SurveyCollection),
		responses: db.Collection(ResponseCollection),
		templates: db.Collection(TemplateCollection),
		logger:    logger,
	}

	if err := store.ensureIndexes(ctx); err != nil {
		logger.Error("failed to create indexes", zap.String("database", dbName), zap.Error(err))
		return nil, err
	}

	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.responses.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "ip_address", Value: 1}},
			Options: options.Index().
				SetName("uniq_survey_ip").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"ip_address": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "submitted_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create response indexes: %w", err)
	}

	_, err = s.surveys.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shareable_link", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create survey indexes: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func (s *Store) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Ping(ctx, nil) == nil
}

func (s *Store) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	if _, err := s.surveys.InsertOne(ctx, toSurveyDoc(survey)); err != nil {
		return s.fail("error create survey", err, zap.String("survey_id", survey.ID))
	}
	return nil
}

func (s *Store) GetSurvey(ctx context.Context, id string) (*entity.Survey, error) {
	var doc surveyDoc
	if err := s.surveys.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, s.fail("error get survey", err, zap.String("survey_id", id))
	}
	return doc.entity(), nil
}

func (s *Store) ListSurveys(ctx context.Context) ([]entity.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := s.surveys.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, s.fail("error list surveys", err)
	}
	defer cursor.Close(ctx)

	var docs []surveyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.fail("error decode surveys", err)
	}

	out := make([]entity.Survey, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.entity())
	}
	return out, nil
}

func (s *Store) UpdateSurvey(ctx context.Context, survey *entity.Survey) error {
	doc := toSurveyDoc(survey)

	res, err := s.surveys.UpdateOne(ctx, bson.M{"_id": survey.ID}, bson.M{
		"$set": bson.M{
			"title":         doc.Title,
			"description":   doc.Description,
			"questions":     doc.Questions,
			"updated_at":    doc.UpdatedAt,
			"expires_at":    doc.ExpiresAt,
			"is_public":     doc.IsPublic,
			"collaborators": doc.Collaborators,
			"settings":      doc.Settings,
		},
	})
	if err != nil {
		return s.fail("error update survey", err, zap.String("survey_id", survey.ID))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("error update survey: %w", entity.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteSurvey(ctx context.Context, id string) error {
	if _, err := s.responses.DeleteMany(ctx, bson.M{"survey_id": id}); err != nil {
		return s.fail("error delete responses", err, zap.String("survey_id", id))
	}

	res, err := s.surveys.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.fail("error delete survey", err, zap.String("survey_id", id))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("error delete survey: %w", entity.ErrNotFound)
	}

	return nil
}

func (s *Store) AddCollaborator(ctx context.Context, surveyID, userID string) error {
	res, err := s.surveys.UpdateOne(ctx,
		bson.M{"_id": surveyID},
		bson.M{"$addToSet": bson.M{"collaborators": userID}},
	)
	if err != nil {
		return s.fail("error add collaborator", err, zap.String("survey_id", surveyID))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("error add collaborator: %w", entity.ErrNotFound)
	}

	return nil
}

func (s *Store) CreateResponse(ctx context.Context, response *entity.Response) error {
	_, err := s.responses.InsertOne(ctx, toResponseDoc(response))
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		s.logger.Info("duplicate response rejected", zap.String("survey_id", response.SurveyID))
		return entity.ErrAlreadyResponded
	}

	return s.fail("error create response", err, zap.String("survey_id", response.SurveyID))
}

func (s *Store) ListResponses(ctx context.Context, surveyID string) ([]entity.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.responses.Find(ctx, bson.M{"survey_id": surveyID}, opts)
	if err != nil {
		return nil, s.fail("error list responses", err, zap.String("survey_id", surveyID))
	}
	defer cursor.Close(ctx)

	var docs []responseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.fail("error decode responses", err, zap.String("survey_id", surveyID))
	}

	out := make([]entity.Response, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}

func (s *Store) CountResponses(ctx context.Context, surveyID string) (int64, error) {
	count, err := s.responses.CountDocuments(ctx, bson.M{"survey_id": surveyID})
	if err != nil {
		return 0, s.fail("error count responses", err, zap.String("survey_id", surveyID))
	}
	return count, nil
}

func (s *Store) ListTemplates(ctx context.Context, category string) ([]entity.Template, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "popularity", Value: -1}, {Key: "created_at", Value: 1}})

	cursor, err := s.templates.Find(ctx, filter, opts)
	if err != nil {
		return nil, s.fail("error list templates", err)
	}
	defer cursor.Close(ctx)

	var docs []templateDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.fail("error decode templates", err)
	}

	out := make([]entity.Template, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*entity.Template, error) {
	var doc templateDoc
	if err := s.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, s.fail("error get template", err, zap.String("template_id", id))
	}
	t := doc.entity()
	return &t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, template *entity.Template) error {
	if _, err := s.templates.InsertOne(ctx, toTemplateDoc(template)); err != nil {
		return s.fail("error create template", err, zap.String("template_id", template.ID))
	}
	return nil
}

func (s *Store) IncrementTemplatePopularity(ctx context.Context, id string) error {
	res, err := s.templates.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"popularity": 1}})
	if err != nil {
		return s.fail("error increment template popularity", err, zap.String("template_id", id))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("error increment template popularity: %w", entity.ErrNotFound)
	}
	return nil
}

func (s *Store) fail(msg string, err error, fields ...zap.Field) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", msg, entity.ErrNotFound)
	}

	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w: %w", msg, entity.ErrStoreUnavailable, err)
}
