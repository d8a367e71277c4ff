package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"checkin-dashboard/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingRepo struct {
	MemoryCheckInRepository
	createErr error
	listErr   error
}

func (r *failingRepo) ListRecords(ctx context.Context) ([]models.CheckIn, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryCheckInRepository.ListRecords(ctx)
}

func (r *failingRepo) CreateRecord(ctx context.Context, doc *models.CheckIn) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryCheckInRepository.CreateRecord(ctx, doc)
}

type failingStorage struct{}

func (failingStorage) Upload(ctx context.Context, key, contentType string, data []byte) (StoredObject, error) {
	return StoredObject{}, errors.New("bucket unavailable")
}

func submittableDraft() CheckInDraft {
	draft := DefaultDraft(testNow)
	draft.Title = "Sea View"
	draft.Name = "Jane"
	draft.Rooms = 2
	draft.Guests = 3
	draft.BookedDate = "2024-05-01"
	img := pngImage("a.jpg")
	img.ContentType = "image/png"
	draft.Image = img
	return draft
}

func newTestCheckInService(t *testing.T, repo CheckInRepository) (*CheckInService, string, *prometheus.Registry) {
	t.Helper()
	root := t.TempDir()
	reg := prometheus.NewRegistry()
	svc := NewCheckInService(repo, NewDiskFileStorage(root, "http://localhost:8080/"), zap.NewNop(), NewMetrics(reg))
	return svc, root, reg
}

// counterValue reads a counter from reg; result selects the label value when
// the counter has one.
func counterValue(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if result == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCheckInService_Submit_WritesImageThenDocument(t *testing.T) {
	repo := NewMemoryCheckInRepository()
	svc, root, reg := newTestCheckInService(t, repo)
	draft := submittableDraft()

	var added []models.CheckInRecord
	doc, err := svc.Submit(context.Background(), draft, func(r models.CheckInRecord) {
		added = append(added, r)
	})
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(root, "uploads", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, draft.Image.Data, stored)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "http://localhost:8080/files/uploads/a.jpg", doc.UploadedFile)
	assert.Equal(t, "2024-05-01", doc.BookedDateString())

	docs, err := repo.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sea View", docs[0].Title)
	assert.Equal(t, "Jane", docs[0].Name)
	assert.Equal(t, "12345678", docs[0].BookingID)
	assert.Equal(t, 2, docs[0].Rooms)
	assert.Equal(t, 3, docs[0].Guests)

	// The page gets the in-memory record, not the stored URL.
	require.Len(t, added, 1)
	assert.Empty(t, added[0].Image.URL)
	require.NotNil(t, added[0].Image.File)
	assert.Equal(t, draft.Image.Data, added[0].Image.File.Data)

	assert.Equal(t, 1.0, counterValue(t, reg, "checkin_submissions_total", "ok"))
	assert.Equal(t, float64(len(draft.Image.Data)), counterValue(t, reg, "checkin_upload_bytes_total", ""))
}

func TestCheckInService_Submit_WriteFailure(t *testing.T) {
	repo := &failingRepo{createErr: errors.New("connection refused")}
	svc, _, reg := newTestCheckInService(t, repo)

	called := false
	_, err := svc.Submit(context.Background(), submittableDraft(), func(models.CheckInRecord) { called = true })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write check-in")
	assert.False(t, called)
	assert.Equal(t, 1.0, counterValue(t, reg, "checkin_submissions_total", "write_error"))
}

func TestCheckInService_Submit_UploadFailure(t *testing.T) {
	repo := NewMemoryCheckInRepository()
	svc := NewCheckInService(repo, failingStorage{}, nil, nil)

	_, err := svc.Submit(context.Background(), submittableDraft(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload uploads/a.jpg")

	docs, err := repo.ListRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCheckInService_Submit_AbandonedBeforeWrite(t *testing.T) {
	repo := NewMemoryCheckInRepository()
	svc, _, reg := newTestCheckInService(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, submittableDraft(), nil)
	assert.ErrorIs(t, err, context.Canceled)

	docs, err := repo.ListRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0.0, counterValue(t, reg, "checkin_submissions_total", "ok"))
}

func TestCheckInService_ListRecords(t *testing.T) {
	repo := NewMemoryCheckInRepository()
	svc, _, _ := newTestCheckInService(t, repo)

	for _, title := range []string{"First", "Second"} {
		draft := submittableDraft()
		draft.Title = title
		_, err := svc.Submit(context.Background(), draft, nil)
		require.NoError(t, err)
	}

	records, err := svc.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].Title)
	assert.Equal(t, "Second", records[1].Title)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "http://localhost:8080/files/uploads/a.jpg", records[1].Image.URL)
	assert.Equal(t, "2024-05-01", records[1].BookedDate)
}

func TestCheckInService_ListRecords_Failure(t *testing.T) {
	svc, _, _ := newTestCheckInService(t, &failingRepo{listErr: errors.New("timeout")})

	_, err := svc.ListRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list check-ins")
}

func TestUploadKey(t *testing.T) {
	assert.Equal(t, "uploads/a.jpg", UploadKey("a.jpg"))
	assert.Equal(t, "uploads/a.jpg", UploadKey(`C:\photos\a.jpg`))
	assert.Equal(t, "uploads/passwd", UploadKey("../../etc/passwd"))
	assert.Regexp(t, `^uploads/\d+\.jpg$`, UploadKey(""))
}
