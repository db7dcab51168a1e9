package repository

import (
	"context"

	"github.com/Koyo-os/survey-service/internal/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListTemplates returns templates, most popular first. An empty category lists all.
func (repo *Repository) ListTemplates(ctx context.Context, category string) ([]entity.Template, error) {
	var templates []entity.Template

	q := repo.db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	if err := q.Order("popularity DESC").Order("created_at").Find(&templates).Error; err != nil {
		return nil, repo.fail("error list templates", err, zap.String("category", category))
	}

	return templates, nil
}

func (repo *Repository) GetTemplate(ctx context.Context, id string) (*entity.Template, error) {
	var template entity.Template

	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&template).Error; err != nil {
		return nil, repo.fail("error get template", err, zap.String("template_id", id))
	}

	return &template, nil
}

func (repo *Repository) CreateTemplate(ctx context.Context, template *entity.Template) error {
	if err := repo.db.WithContext(ctx).Create(template).Error; err != nil {
		return repo.fail("error create template", err, zap.String("template_id", template.ID))
	}
	return nil
}

// IncrementTemplatePopularity counts one more use of the template
func (repo *Repository) IncrementTemplatePopularity(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).
		Model(&entity.Template{}).
		Where("id = ?", id).
		UpdateColumn("popularity", gorm.Expr("popularity + ?", 1))
	if res.Error != nil {
		return repo.fail("error increment template popularity", res.Error, zap.String("template_id", id))
	}
	if res.RowsAffected == 0 {
		return repo.fail("error increment template popularity", gorm.ErrRecordNotFound, zap.String("template_id", id))
	}

	return nil
}
