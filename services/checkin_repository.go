package services

import (
	"context"
	"sync"
	"time"

	"checkin-dashboard/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckInRepository is the record store the dashboard reads from and appends to.
type CheckInRepository interface {
	// ListRecords returns every document of the collection.
	ListRecords(ctx context.Context) ([]models.CheckIn, error)
	// CreateRecord appends a document and fills in its generated ID.
	CreateRecord(ctx context.Context, doc *models.CheckIn) error
}

var (
	_ CheckInRepository = (*GormCheckInRepository)(nil)
	_ CheckInRepository = (*MemoryCheckInRepository)(nil)
)

// GormCheckInRepository keeps the collection in the checkins table.
type GormCheckInRepository struct {
	DB *gorm.DB
}

func NewGormCheckInRepository(db *gorm.DB) *GormCheckInRepository {
	return &GormCheckInRepository{DB: db}
}

func (r *GormCheckInRepository) ListRecords(ctx context.Context) ([]models.CheckIn, error) {
	var docs []models.CheckIn
	err := r.DB.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *GormCheckInRepository) CreateRecord(ctx context.Context, doc *models.CheckIn) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return r.DB.WithContext(ctx).Create(doc).Error
}

// MemoryCheckInRepository holds the collection in process memory. It backs
// DB_DRIVER=memory and the tests.
type MemoryCheckInRepository struct {
	mu   sync.RWMutex
	docs []models.CheckIn
}

func NewMemoryCheckInRepository(seed ...models.CheckIn) *MemoryCheckInRepository {
	return &MemoryCheckInRepository{docs: append([]models.CheckIn(nil), seed...)}
}

func (r *MemoryCheckInRepository) ListRecords(ctx context.Context) ([]models.CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.CheckIn(nil), r.docs...), nil
}

func (r *MemoryCheckInRepository) CreateRecord(ctx context.Context, doc *models.CheckIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, *doc)
	return nil
}
