package repository

import (
	"context"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// PointsRepository предоставляет чтение журнала начислений
type PointsRepository interface {
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.PointsTransaction, int64, error)
	// SumByUser возвращает баланс, посчитанный по журналу
	SumByUser(ctx context.Context, userID uint) (int64, error)
}
