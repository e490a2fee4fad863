package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/bulkimport/internal/history"
	"github.com/JonMunkholm/bulkimport/internal/logging"
)

// DefaultMaxFileSize is the upload size limit when none is configured.
const DefaultMaxFileSize int64 = 10 << 20

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = time.Hour

// ServiceOptions wires a Service.
type ServiceOptions struct {
	Importer  *Importer
	Submitter *Submitter

	// Limiter is optional; nil allows unlimited concurrent submissions.
	Limiter *UploadLimiter

	// History is optional; nil disables upload history.
	History history.Store

	MaxFileSize int64
	SessionTTL  time.Duration
}

// Service owns upload sessions and drives them through the pipeline.
type Service struct {
	importer    *Importer
	submitter   *Submitter
	limiter     *UploadLimiter
	history     history.Store
	maxFileSize int64
	ttl         time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// UploadProgress reports how far a batched upload has got.
type UploadProgress struct {
	BatchesDone  int `json:"batchesDone"`
	BatchesTotal int `json:"batchesTotal"`
}

type session struct {
	mu sync.Mutex

	id        string
	sellerID  string
	state     SessionState
	fileName  string
	data      []byte
	preview   *Preview
	result    *UploadResult
	progress  *UploadProgress
	lastErr   error
	createdAt time.Time
	updatedAt time.Time

	// generation changes on Clear so a finishing upload can tell the
	// session was reset underneath it.
	generation int
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		importer:    opts.Importer,
		submitter:   opts.Submitter,
		limiter:     opts.Limiter,
		history:     opts.History,
		maxFileSize: opts.MaxFileSize,
		ttl:         opts.SessionTTL,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// Create starts an idle session owned by sellerID.
func (s *Service) Create(ctx context.Context, sellerID string) SessionSnapshot {
	now := s.now()
	sess := &session{
		id:        uuid.New().String(),
		sellerID:  sellerID,
		state:     StateIdle,
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logging.WithFields(ctx, "session_id", sess.id, "seller_id", sellerID).Debug("upload session created")
	return sess.snapshot()
}

// Get returns a snapshot of a session.
func (s *Service) Get(_ context.Context, sellerID, id string) (SessionSnapshot, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// SelectFile reads a CSV file into the session, replacing any previous
// file, preview and result.
func (s *Service) SelectFile(ctx context.Context, sellerID, id, fileName string, r io.Reader) (SessionSnapshot, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	data, err := s.readFile(fileName, r)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateUploading {
		return SessionSnapshot{}, ErrUploadInFlight
	}

	sess.reset()
	sess.fileName = filepath.Base(fileName)
	sess.data = data
	sess.state = StateFileSelected
	sess.updatedAt = s.now()

	logging.WithFields(ctx, "session_id", id, "file", sess.fileName, "bytes", len(data)).Info("file selected")
	return sess.snapshot(), nil
}

func (s *Service) readFile(fileName string, r io.Reader) ([]byte, error) {
	if fileName == "" || r == nil {
		return nil, ErrNoFile
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return nil, ErrInvalidFileType
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// Preview parses and validates the selected file.
func (s *Service) Preview(ctx context.Context, sellerID, id string) (*Preview, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.state {
	case StateFileSelected, StatePreviewed:
	case StateIdle:
		return nil, ErrNoFile
	case StateUploading:
		return nil, ErrUploadInFlight
	default:
		return nil, fmt.Errorf("%w: cannot preview in state %s", ErrInvalidState, sess.state)
	}

	p, err := s.importer.Preview(sess.data)
	sess.updatedAt = s.now()
	if err != nil {
		sess.lastErr = err
		sess.preview = nil
		sess.state = StateFileSelected
		return nil, err
	}

	sess.lastErr = nil
	sess.preview = p
	sess.state = StatePreviewed

	logging.WithFields(ctx, "session_id", id).Info("preview built",
		"total_rows", p.Summary.TotalRows,
		"valid_rows", p.Summary.ValidRows,
		"invalid_rows", p.Summary.InvalidRows,
	)
	return p, nil
}

// Upload submits the valid rows of a previewed session.
//
// ErrNoValidProducts is returned without contacting the marketplace and
// without leaving the previewed state. Once the submission starts the
// session ends in success, partial-failure or hard-failure, and the result
// is returned even when err is non-nil.
func (s *Service) Upload(ctx context.Context, sellerID, id string) (*UploadResult, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	switch sess.state {
	case StatePreviewed:
	case StateUploading:
		sess.mu.Unlock()
		return nil, ErrUploadInFlight
	default:
		state := sess.state
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot upload in state %s", ErrInvalidState, state)
	}

	products := sess.preview.ValidProducts()
	if len(products) == 0 {
		sess.mu.Unlock()
		return nil, ErrNoValidProducts
	}
	summary := sess.preview.Summary
	gen := sess.generation
	sess.state = StateUploading
	sess.progress = &UploadProgress{BatchesTotal: s.submitter.batchCount(len(products))}
	sess.updatedAt = s.now()
	sess.mu.Unlock()

	logger := logging.WithFields(ctx, "session_id", id, "seller_id", sellerID, "products", len(products))

	if s.limiter != nil {
		release, err := s.limiter.Acquire(ctx, id)
		if err != nil {
			sess.mu.Lock()
			if sess.generation == gen {
				sess.state = StatePreviewed
				sess.progress = nil
			}
			sess.mu.Unlock()
			logger.Warn("upload slot unavailable", "error", err)
			return nil, err
		}
		defer release()
	}

	logger.Info("upload started")
	result, err := s.submitter.submit(ctx, products, func(done int) {
		sess.mu.Lock()
		if sess.generation == gen && sess.progress != nil {
			sess.progress.BatchesDone = done
		}
		sess.mu.Unlock()
	})

	sess.mu.Lock()
	current := sess.generation == gen
	if current {
		sess.result = result
		sess.lastErr = err
		sess.state = result.Outcome()
		sess.updatedAt = s.now()
	}
	fileName := sess.fileName
	outcome := result.Outcome()
	sess.mu.Unlock()

	if err != nil {
		logger.Error("upload failed", "error", err, "outcome", outcome)
	} else {
		logger.Info("upload finished", "outcome", outcome, "uploaded", result.Uploaded, "failed", result.FailedCount())
	}

	s.recordHistory(ctx, history.Entry{
		SessionID: id,
		SellerID:  sellerID,
		FileName:  fileName,
		TotalRows: summary.TotalRows,
		ValidRows: summary.ValidRows,
		Uploaded:  result.Uploaded,
		Failed:    result.FailedCount(),
		Outcome:   string(outcome),
		Error:     errorText(err),
	})

	return result, err
}

func (s *Service) recordHistory(ctx context.Context, e history.Entry) {
	if s.history == nil {
		return
	}
	meta := RequestMetaFromContext(ctx)
	e.IPAddress = meta.IPAddress
	e.UserAgent = meta.UserAgent

	// History failures are logged, not returned.
	if _, err := s.history.Record(context.WithoutCancel(ctx), e); err != nil {
		logging.FromContext(ctx).Error("failed to record upload history", "session_id", e.SessionID, "error", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Clear returns a session to idle from any state. A running upload
// continues, but its result is no longer attached to the session.
func (s *Service) Clear(ctx context.Context, sellerID, id string) (SessionSnapshot, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.reset()
	sess.state = StateIdle
	sess.updatedAt = s.now()

	logging.WithFields(ctx, "session_id", id).Debug("upload session cleared")
	return sess.snapshot(), nil
}

// Delete discards a session.
func (s *Service) Delete(ctx context.Context, sellerID, id string) error {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.reset()
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	logging.WithFields(ctx, "session_id", id).Debug("upload session deleted")
	return nil
}

// Sweep discards sessions untouched for longer than the TTL. Uploading
// sessions are kept. It returns the number removed.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := sess.state != StateUploading && now.Sub(sess.updatedAt) > s.ttl
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LimiterStatus reports upload slot usage, or a zero status without a limiter.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	if s.limiter == nil {
		return UploadLimiterStatus{}
	}
	return s.limiter.Status()
}

// WaitForUploads blocks until no submission holds an upload slot or ctx
// is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.WaitForDrain(ctx)
}

// SessionPreview returns the last preview built for a session.
func (s *Service) SessionPreview(_ context.Context, sellerID, id string) (*Preview, error) {
	sess, err := s.lookup(sellerID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.preview == nil {
		return nil, fmt.Errorf("%w: no preview built", ErrInvalidState)
	}
	return sess.preview, nil
}

// lookup finds a session owned by sellerID. Sessions of other sellers are
// reported as not found.
func (s *Service) lookup(sellerID, id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.sellerID != sellerID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// reset drops everything derived from the selected file. Callers hold mu.
func (sess *session) reset() {
	sess.generation++
	sess.fileName = ""
	sess.data = nil
	sess.preview = nil
	sess.result = nil
	sess.progress = nil
	sess.lastErr = nil
}

// snapshot copies the session for callers. Callers hold mu.
func (sess *session) snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:        sess.id,
		SellerID:  sess.sellerID,
		State:     sess.state,
		FileName:  sess.fileName,
		FileSize:  int64(len(sess.data)),
		Result:    sess.result,
		CreatedAt: sess.createdAt,
		UpdatedAt: sess.updatedAt,
	}
	if sess.preview != nil {
		summary := sess.preview.Summary
		snap.Summary = &summary
	}
	if sess.progress != nil {
		progress := *sess.progress
		snap.Progress = &progress
	}
	if sess.lastErr != nil {
		msg := MapError(sess.lastErr)
		snap.Error = &msg
	}
	return snap
}
