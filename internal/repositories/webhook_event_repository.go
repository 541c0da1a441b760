package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type IWebhookEventRepository interface {
	// Insert records a delivery keyed by its body digest. It returns false
	// when the same body was already recorded, which is how duplicate
	// gateway deliveries are detected across restarts and instances.
	Insert(ctx context.Context, event *db_models.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, digest string, at time.Time) error
}

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) IWebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

const pgUniqueViolation = "23505"

// isDuplicateKey recognizes a unique violation both as the raw pgx error and
// as gorm's translated sentinel.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (w *WebhookEventRepository) Insert(ctx context.Context, event *db_models.WebhookEvent) (bool, error) {
	err := w.db.WithContext(ctx).Create(event).Error
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (w *WebhookEventRepository) MarkProcessed(ctx context.Context, digest string, at time.Time) error {
	return w.db.WithContext(ctx).Model(&db_models.WebhookEvent{}).
		Where("digest = ?", digest).
		Update("processed_at", at.Unix()).Error
}
