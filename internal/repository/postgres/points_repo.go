package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// PointsRepo реализует repository.PointsRepository
type PointsRepo struct {
	db *gorm.DB
}

// NewPointsRepo создает репозиторий журнала начислений
func NewPointsRepo(db *gorm.DB) *PointsRepo {
	return &PointsRepo{db: db}
}

// ListByUser возвращает записи журнала пользователя от новых к старым
func (r *PointsRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.PointsTransaction, int64, error) {
	entries := make([]entity.PointsTransaction, 0)
	var total int64

	base := r.db.WithContext(ctx).Model(&entity.PointsTransaction{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumByUser возвращает баланс пользователя по журналу
func (r *PointsRepo) SumByUser(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&entity.PointsTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}
