package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/fieldserve/pingate/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(session *domain.Session) error
	FindActiveByTokenHash(hash string) (*domain.Session, error)
	RevokeByTokenHash(hash string) error
	CleanupExpired() (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(session *domain.Session) error {
	return r.db.Create(session).Error
}

func (r *GormSessionRepository) FindActiveByTokenHash(hash string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, time.Now().UTC()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *GormSessionRepository) RevokeByTokenHash(hash string) error {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *GormSessionRepository) CleanupExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now().UTC()).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
