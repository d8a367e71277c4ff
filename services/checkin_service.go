package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkin-dashboard/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CheckInService writes finished drafts: image first, then the document.
type CheckInService struct {
	Repo    CheckInRepository
	Files   FileStorage
	Log     *zap.Logger
	Metrics *Metrics
}

func NewCheckInService(repo CheckInRepository, files FileStorage, logger *zap.Logger, metrics *Metrics) *CheckInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{Repo: repo, Files: files, Log: logger, Metrics: metrics}
}

// ListDocuments reads the whole collection.
func (s *CheckInService) ListDocuments(ctx context.Context) ([]models.CheckIn, error) {
	docs, err := s.Repo.ListRecords(ctx)
	if err != nil {
		s.Log.Error("list check-ins failed", zap.Error(err))
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return docs, nil
}

// ListRecords reads the whole collection as dashboard records.
func (s *CheckInService) ListRecords(ctx context.Context) ([]models.CheckInRecord, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]models.CheckInRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.ToRecord())
	}
	return records, nil
}

// Submit uploads the draft image, writes the document carrying the resolved
// URL, then hands the original in-memory record to onAdded. The write is not
// issued once ctx is done.
func (s *CheckInService) Submit(ctx context.Context, draft CheckInDraft, onAdded func(models.CheckInRecord)) (models.CheckIn, error) {
	record := draft.Record()

	fileURL := ""
	if draft.Image != nil {
		key := UploadKey(draft.Image.FileName)
		obj, err := s.Files.Upload(ctx, key, draft.Image.ContentType, draft.Image.Data)
		if err != nil {
			s.Log.Error("upload check-in image failed", zap.String("key", key), zap.Error(err))
			s.Metrics.submission("upload_error")
			return models.CheckIn{}, fmt.Errorf("upload %s: %w", key, err)
		}
		s.Metrics.uploaded(obj.Size)
		fileURL = obj.URL
	}

	if err := ctx.Err(); err != nil {
		s.Log.Info("check-in abandoned before write", zap.String("title", draft.Title))
		s.Metrics.submission("abandoned")
		return models.CheckIn{}, err
	}

	doc, err := newCheckInDocument(record, fileURL)
	if err != nil {
		s.Metrics.submission("invalid")
		return models.CheckIn{}, err
	}
	if err := s.Repo.CreateRecord(ctx, &doc); err != nil {
		s.Log.Error("write check-in failed", zap.String("title", doc.Title), zap.Error(err))
		s.Metrics.submission("write_error")
		return models.CheckIn{}, fmt.Errorf("write check-in: %w", err)
	}
	s.Log.Info("check-in written", zap.String("id", doc.ID), zap.String("uploadedFile", doc.UploadedFile))
	s.Metrics.submission("ok")

	if onAdded != nil {
		onAdded(record)
	}
	return doc, nil
}

func newCheckInDocument(r models.CheckInRecord, fileURL string) (models.CheckIn, error) {
	booked, err := time.Parse(models.DateLayout, strings.TrimSpace(r.BookedDate))
	if err != nil {
		return models.CheckIn{}, fmt.Errorf("bookedDate %q: %w", r.BookedDate, err)
	}
	return models.CheckIn{
		Title:        strings.TrimSpace(r.Title),
		Name:         strings.TrimSpace(r.Name),
		BookingID:    strings.TrimSpace(r.BookingID),
		Rooms:        r.Rooms,
		Guests:       r.Guests,
		BookedDate:   datatypes.Date(booked),
		UploadedFile: fileURL,
	}, nil
}
