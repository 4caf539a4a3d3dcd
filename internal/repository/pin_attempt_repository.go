package repository

import (
	"gorm.io/gorm"

	"github.com/fieldserve/pingate/internal/domain"
)

type PinAttemptRepository interface {
	Create(attempt *domain.PinAttempt) error
	ListRecent(clientKey string, limit int) ([]domain.PinAttempt, error)
}

type GormPinAttemptRepository struct{ db *gorm.DB }

func NewPinAttemptRepository(db *gorm.DB) PinAttemptRepository {
	return &GormPinAttemptRepository{db: db}
}

func (r *GormPinAttemptRepository) Create(attempt *domain.PinAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *GormPinAttemptRepository) ListRecent(clientKey string, limit int) ([]domain.PinAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	var attempts []domain.PinAttempt
	err := r.db.
		Where("client_key = ?", clientKey).
		Order("created_at desc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}
