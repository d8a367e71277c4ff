package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"checkin-dashboard/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxImageBytes caps the size of an attached image.
const DefaultMaxImageBytes int64 = 10 << 20

// DashboardService runs page sessions: the one-shot load on mount, the
// check-in form each page owns and the append of finished check-ins.
type DashboardService struct {
	CheckIns      *CheckInService
	Sessions      SessionStore
	Log           *zap.Logger
	MaxImageBytes int64

	now   func() time.Time
	locks keyedMutex

	mu       sync.Mutex
	inflight map[string]inflightSave
}

// inflightSave tracks the save running for a session's form. A save whose
// outcome could not be stored is kept as done until the next access applies it.
type inflightSave struct {
	generation int
	cancel     context.CancelFunc

	done   bool
	record *models.CheckInRecord
	err    error
}

const interruptedSaveNotice = "The last save was interrupted and may not have been stored. Press OK to try again."

func NewDashboardService(checkins *CheckInService, sessions SessionStore, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		CheckIns:      checkins,
		Sessions:      sessions,
		Log:           logger,
		MaxImageBytes: DefaultMaxImageBytes,
		now:           time.Now,
		inflight:      make(map[string]inflightSave),
	}
}

// Mount creates a page session and loads the collection once. Records
// written elsewhere later are not picked up by this session.
func (s *DashboardService) Mount(ctx context.Context) (*PageSession, error) {
	records, err := s.CheckIns.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &PageSession{
		ID:        uuid.NewString(),
		Records:   records,
		Form:      NewCheckInForm(now),
		MountedAt: now,
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.CheckIns.Metrics.mounted()
	s.Log.Info("dashboard mounted", zap.String("session", sess.ID), zap.Int("records", len(records)))
	return sess, nil
}

// Session returns a page session as it stands, without reloading records. A
// form left submitting by a save that is no longer running is settled first.
func (s *DashboardService) Session(ctx context.Context, id string) (*PageSession, error) {
	sess, err := s.Sessions.Load(ctx, id)
	if err != nil || !sess.Form.Submitting {
		return sess, err
	}
	return s.update(ctx, id, func(*PageSession) error { return nil })
}

// AddRecord is the add callback of a page: a plain append.
func (s *DashboardService) AddRecord(ctx context.Context, id string, r models.CheckInRecord) (*PageSession, error) {
	return s.update(ctx, id, func(p *PageSession) error {
		p.Records = append(p.Records, r)
		return nil
	})
}

func (s *DashboardService) OpenForm(ctx context.Context, id string) (*PageSession, error) {
	sess, err := s.update(ctx, id, func(p *PageSession) error {
		p.Form = p.Form.Open(s.now())
		return nil
	})
	if err == nil {
		s.cancelInflight(id)
	}
	return sess, err
}

// CancelForm discards the draft. A save still running for the form is
// cancelled and its result will not reach the page.
func (s *DashboardService) CancelForm(ctx context.Context, id string) (*PageSession, error) {
	sess, err := s.update(ctx, id, func(p *PageSession) error {
		p.Form = p.Form.Cancel(s.now())
		return nil
	})
	if err == nil {
		s.cancelInflight(id)
	}
	return sess, err
}

func (s *DashboardService) SetField(ctx context.Context, id, name, value string) (*PageSession, error) {
	return s.update(ctx, id, func(p *PageSession) error {
		form, err := p.Form.SetField(name, value)
		if err != nil {
			return err
		}
		p.Form = form
		return nil
	})
}

// SetFields applies several typed values at once. Nothing is kept when any of
// them is rejected.
func (s *DashboardService) SetFields(ctx context.Context, id string, fields map[string]string) (*PageSession, error) {
	for name := range fields {
		if !isKnownField(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	return s.update(ctx, id, func(p *PageSession) error {
		form := p.Form
		for _, name := range orderedFields {
			value, ok := fields[name]
			if !ok {
				continue
			}
			next, err := form.SetField(name, value)
			if err != nil {
				return err
			}
			form = next
		}
		p.Form = form
		return nil
	})
}

func (s *DashboardService) AttachImage(ctx context.Context, id string, file *models.ImageFile) (*PageSession, error) {
	return s.update(ctx, id, func(p *PageSession) error {
		if s.tooLarge(file) {
			if !p.Form.IsOpen() {
				return ErrWrongStage
			}
			p.Form = p.Form.RejectImage(s.tooLargeMessage())
			return nil
		}
		form, err := p.Form.AttachImage(file)
		if err != nil {
			return err
		}
		p.Form = form
		return nil
	})
}

func (s *DashboardService) DismissNotice(ctx context.Context, id string) (*PageSession, error) {
	return s.update(ctx, id, func(p *PageSession) error {
		p.Form = p.Form.DismissNotice()
		return nil
	})
}

// ConfirmBasic handles "Add" on step one.
func (s *DashboardService) ConfirmBasic(ctx context.Context, id string, in FormInput) (*PageSession, error) {
	return s.update(ctx, id, func(p *PageSession) error {
		if !s.tooLarge(in.Image) {
			form, err := p.Form.ConfirmBasic(in)
			if err != nil {
				return err
			}
			p.Form = form
			return nil
		}

		if p.Form.Stage != StageBasicInfo {
			return ErrWrongStage
		}
		form, errs, err := p.Form.apply(FormInput{Fields: in.Fields})
		if err != nil {
			return err
		}
		if strings.TrimSpace(form.Draft.Title) == "" {
			errs[FieldTitle] = "Title is required"
		}
		form.Errors = errs
		p.Form = form.RejectImage(s.tooLargeMessage())
		return nil
	})
}

// ConfirmDetail handles "OK" on step two. A valid draft is saved through the
// check-in service while the session lock is released; the save is registered
// before that, so a close that follows can cancel it. The result is applied
// only if the form is still the one that started the save.
func (s *DashboardService) ConfirmDetail(ctx context.Context, id string, in FormInput) (*PageSession, error) {
	// The save outlives the request that started it; only closing the form stops it.
	bg := context.WithoutCancel(ctx)
	var (
		draft      CheckInDraft
		generation int
		opCtx      context.Context
		cancel     context.CancelFunc
	)
	sess, err := s.update(ctx, id, func(p *PageSession) error {
		form, err := p.Form.ConfirmDetail(in)
		if err != nil {
			return err
		}
		p.Form = form
		if form.Submitting {
			draft, generation = form.Draft, form.Generation
			opCtx, cancel = context.WithCancel(bg)
			s.trackInflight(id, generation, cancel)
		}
		return nil
	})
	if err != nil {
		if cancel != nil {
			s.untrackInflight(id, generation)
			cancel()
		}
		return nil, err
	}
	if !sess.Form.Submitting {
		return sess, nil
	}
	defer cancel()

	var added *models.CheckInRecord
	_, submitErr := s.CheckIns.Submit(opCtx, draft, func(r models.CheckInRecord) {
		added = &r
	})

	sess, err = s.update(bg, id, func(p *PageSession) error {
		if p.Form.Generation != generation || !p.Form.Submitting {
			s.Log.Warn("discarding check-in result for a closed form",
				zap.String("session", id), zap.Int("generation", generation), zap.Bool("saved", submitErr == nil))
			return ErrFormClosed
		}
		if submitErr != nil {
			p.Form = p.Form.Fail("")
			return nil
		}
		p.Records = append(p.Records, *added)
		p.Form = p.Form.Complete(s.now())
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFormClosed) {
			s.untrackInflight(id, generation)
		} else {
			s.holdResult(id, generation, added, submitErr)
		}
		return nil, err
	}
	s.untrackInflight(id, generation)
	if submitErr != nil {
		return sess, fmt.Errorf("%w: %w", ErrSubmitFailed, submitErr)
	}
	return sess, nil
}

// Preview returns the image attached to the open draft.
func (s *DashboardService) Preview(ctx context.Context, id string) (*models.ImageFile, error) {
	sess, err := s.Sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	img := sess.Form.Draft.Image
	if !sess.Form.IsOpen() || img == nil || len(img.Data) == 0 {
		return nil, ErrNoImage
	}
	return img, nil
}

// update runs fn on the stored session under the session's lock and saves the
// result. Nothing fn did is saved when it fails.
func (s *DashboardService) update(ctx context.Context, id string, fn func(*PageSession) error) (*PageSession, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.Sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	settled := s.settleSave(id, sess)
	if err := fn(sess); err != nil {
		if settled {
			if saveErr := s.Sessions.Save(ctx, sess); saveErr != nil {
				s.Log.Warn("save settled session", zap.String("session", id), zap.Error(saveErr))
			}
		}
		return nil, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *DashboardService) tooLarge(file *models.ImageFile) bool {
	return file != nil && s.MaxImageBytes > 0 && int64(len(file.Data)) > s.MaxImageBytes
}

func (s *DashboardService) tooLargeMessage() string {
	if s.MaxImageBytes < 1<<20 {
		return fmt.Sprintf("Image must be at most %d KB", s.MaxImageBytes>>10)
	}
	return fmt.Sprintf("Image must be at most %d MB", s.MaxImageBytes>>20)
}

func (s *DashboardService) trackInflight(id string, generation int, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[id] = inflightSave{generation: generation, cancel: cancel}
}

func (s *DashboardService) untrackInflight(id string, generation int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok := s.inflight[id]; ok && op.generation == generation {
		delete(s.inflight, id)
	}
}

// holdResult keeps the outcome of a save the session could not record, so the
// next access to the session applies it.
func (s *DashboardService) holdResult(id string, generation int, record *models.CheckInRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.inflight[id]
	if !ok || op.generation != generation {
		return
	}
	op.done, op.record, op.err = true, record, err
	s.inflight[id] = op
}

// settleSave resolves a form left submitting by a save that is no longer
// running: a held outcome is applied, otherwise the form reopens for a retry
// with a notice. It reports whether p changed.
func (s *DashboardService) settleSave(id string, p *PageSession) bool {
	if !p.Form.Submitting {
		return false
	}
	s.mu.Lock()
	op, ok := s.inflight[id]
	if ok && !op.done && op.generation == p.Form.Generation {
		s.mu.Unlock()
		return false
	}
	if ok && op.done {
		delete(s.inflight, id)
	}
	s.mu.Unlock()

	if ok && op.done && op.generation == p.Form.Generation {
		if op.err != nil || op.record == nil {
			p.Form = p.Form.Fail("")
			return true
		}
		p.Records = append(p.Records, *op.record)
		p.Form = p.Form.Complete(s.now())
		return true
	}
	s.Log.Warn("check-in form left submitting without a running save",
		zap.String("session", id), zap.Int("generation", p.Form.Generation))
	p.Form = p.Form.Fail(interruptedSaveNotice)
	return true
}

func (s *DashboardService) cancelInflight(id string) {
	s.mu.Lock()
	op, ok := s.inflight[id]
	delete(s.inflight, id)
	s.mu.Unlock()
	if ok {
		op.cancel()
	}
}

// keyedMutex serializes work per session id inside this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
