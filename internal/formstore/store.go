// Package formstore keeps the site's form submissions as one JSON array
// under one key of a key-value device.
//
// Every mutation reads the whole collection, changes it and writes it back.
// Storage failures are logged and turned into safe defaults: an empty
// collection for reads and false for targeted mutations. Create is the
// exception and reports the failure alongside the record it built. A blob
// that cannot be decoded is copied aside before a write replaces it.
// Observers are called after the store lock is released.
package formstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidType   = errors.New("INVALID_SUBMISSION_TYPE")
	ErrInvalidStatus = errors.New("INVALID_SUBMISSION_STATUS")
	ErrStorageRead   = errors.New("STORAGE_READ_FAILED")
	ErrStorageWrite  = errors.New("STORAGE_WRITE_FAILED")
	ErrQuotaExceeded = errors.New("STORAGE_QUOTA_EXCEEDED")
	ErrSerialization = errors.New("SERIALIZATION_FAILED")
)

// Store is the submission log. Construct one per process and share it.
type Store struct {
	kv     KV
	key    string
	logger logger.Logger

	now        func() time.Time
	newID      func(time.Time) string
	maxBytes   int
	dateLayout string
	location   *time.Location

	observers []Observer
	recorder  Recorder

	// Serializes read-modify-write cycles inside this process. Writers in
	// other processes sharing the same device still race; the last write wins.
	mu sync.Mutex
}

func New(kv KV, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		key:        DefaultKey,
		logger:     log,
		now:        time.Now,
		newID:      NewID,
		dateLayout: DefaultDateLayout,
		location:   time.Local,
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(map[string]interface{}{"storageKey": s.key})
	return s
}

// Key returns the storage slot name.
func (s *Store) Key() string {
	return s.key
}

// NewID builds "<unix ms>-<9 base36 chars>".
func NewID(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix[len(suffix)-9:])
}

// load reads the collection. An absent key is an empty collection.
func (s *Store) load(ctx context.Context) ([]models.Submission, error) {
	subs, _, err := s.loadRaw(ctx)
	return subs, err
}

// loadRaw also returns the stored blob so an undecodable one can be kept
// aside before it is overwritten.
func (s *Store) loadRaw(ctx context.Context) ([]models.Submission, string, error) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []models.Submission{}, raw, nil
	}

	var subs []models.Submission
	if err := json.Unmarshal([]byte(raw), &subs); err != nil {
		return nil, raw, fmt.Errorf("%w: %w: %v", ErrStorageRead, ErrSerialization, err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, raw, nil
}

// loadForWrite reads the collection a mutation is about to rewrite. A blob
// that is present but cannot be decoded is copied to CorruptKey and the
// mutation continues from an empty collection. Only an unreachable device
// or a failed copy stops the write.
func (s *Store) loadForWrite(ctx context.Context, op string) ([]models.Submission, error) {
	subs, raw, err := s.loadRaw(ctx)
	if err == nil || !errors.Is(err, ErrSerialization) {
		return subs, err
	}

	backup := CorruptKey(s.key, s.now())
	if setErr := s.kv.Set(ctx, backup, raw); setErr != nil {
		s.storageFailed(op, "failed to keep undecodable submissions aside", setErr, map[string]interface{}{"backupKey": backup})
		return nil, err
	}
	s.recorder.StorageFailure(op)
	s.logger.Error("stored submissions could not be decoded, moved aside and starting empty", map[string]interface{}{
		"operation": op,
		"backupKey": backup,
		"bytes":     len(raw),
		"error":     err,
	})
	return []models.Submission{}, nil
}

// CorruptKey names the slot an undecodable collection is copied to.
func CorruptKey(key string, now time.Time) string {
	return fmt.Sprintf("%s.corrupt-%d", key, now.UnixMilli())
}

// save overwrites the whole collection.
func (s *Store) save(ctx context.Context, subs []models.Submission) error {
	blob, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("%w: %w: %v", ErrStorageWrite, ErrSerialization, err)
	}
	if s.maxBytes > 0 && len(blob) > s.maxBytes {
		return fmt.Errorf("%w: %w: collection is %d bytes, limit %d", ErrStorageWrite, ErrQuotaExceeded, len(blob), s.maxBytes)
	}
	if err := s.kv.Set(ctx, s.key, string(blob)); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return fmt.Errorf("%w: %w", ErrStorageWrite, err)
		}
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

func (s *Store) finish(op string, start time.Time, ok bool) {
	s.recorder.Operation(op, ok, s.now().Sub(start))
}

func (s *Store) storageFailed(op, msg string, err error, fields map[string]interface{}) {
	s.recorder.StorageFailure(op)
	f := map[string]interface{}{"operation": op, "error": err}
	for k, v := range fields {
		f[k] = v
	}
	s.logger.Error(msg, f)
}

// Create stores a new submission at the head of the collection. Data keys
// are kept in sorted order; use CreateWithOrder to keep the form's order.
//
// If the collection cannot be read or written the record is still returned,
// together with an error wrapping ErrStorageRead or ErrStorageWrite. The
// caller decides whether the user should see the failure.
func (s *Store) Create(ctx context.Context, t models.SubmissionType, data map[string]string) (models.Submission, error) {
	return s.CreateWithOrder(ctx, t, data, nil)
}

// CreateWithOrder is Create with the data keys listed in form order.
func (s *Store) CreateWithOrder(ctx context.Context, t models.SubmissionType, data map[string]string, fields []string) (models.Submission, error) {
	start := s.now()
	if !t.Valid() {
		s.finish("create", start, false)
		return models.Submission{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	sub, err := s.create(ctx, t, data, fields, start)
	if err != nil {
		return sub, err
	}
	for _, o := range s.observers {
		o.SubmissionSaved(ctx, sub.Clone())
	}
	return sub, nil
}

func (s *Store) create(ctx context.Context, t models.SubmissionType, data map[string]string, fields []string, start time.Time) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, loadErr := s.loadForWrite(ctx, "create")

	now := s.now()
	sub := models.Submission{
		ID:        s.uniqueID(now, existing),
		Type:      t,
		Timestamp: now.UnixMilli(),
		Data:      copyData(data),
		Status:    models.StatusNew,
	}
	sub.Fields = fields
	sub.Fields = sub.FieldOrder()

	if loadErr != nil {
		s.storageFailed("create", "failed to save submission", loadErr, map[string]interface{}{"submissionId": sub.ID})
		s.finish("create", start, false)
		return sub, loadErr
	}

	next := make([]models.Submission, 0, len(existing)+1)
	next = append(next, sub)
	next = append(next, existing...)

	if err := s.save(ctx, next); err != nil {
		s.storageFailed("create", "failed to save submission", err, map[string]interface{}{"submissionId": sub.ID})
		s.finish("create", start, false)
		return sub, err
	}

	s.recorder.Created(t)
	s.finish("create", start, true)
	s.logger.Info("submission saved", map[string]interface{}{
		"submissionId": sub.ID,
		"type":         string(t),
		"total":        len(next),
	})
	return sub, nil
}

func (s *Store) uniqueID(now time.Time, existing []models.Submission) string {
	taken := make(map[string]struct{}, len(existing))
	for _, sub := range existing {
		taken[sub.ID] = struct{}{}
	}
	for {
		id := s.newID(now)
		if _, dup := taken[id]; !dup {
			return id
		}
		s.logger.Warn("generated submission id already in use, regenerating", map[string]interface{}{"submissionId": id})
	}
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// ReadAll returns every submission, newest first. Read failures are logged
// and yield an empty slice.
func (s *Store) ReadAll(ctx context.Context) []models.Submission {
	start := s.now()
	subs, err := s.load(ctx)
	if err != nil {
		s.storageFailed("read", "failed to get submissions", err, nil)
		s.finish("read", start, false)
		return []models.Submission{}
	}
	s.finish("read", start, true)
	return subs
}

// ReadByType keeps stored order.
func (s *Store) ReadByType(ctx context.Context, t models.SubmissionType) []models.Submission {
	return s.Filter(ctx, Query{Type: t})
}

// Get looks a single submission up by id.
func (s *Store) Get(ctx context.Context, id string) (models.Submission, bool) {
	for _, sub := range s.ReadAll(ctx) {
		if sub.ID == id {
			return sub, true
		}
	}
	return models.Submission{}, false
}

// Query narrows Filter results. Zero fields match everything.
type Query struct {
	Type   models.SubmissionType
	Status models.SubmissionStatus
	// Search is a case-insensitive substring matched against data values.
	Search string
}

func (q Query) matches(sub models.Submission) bool {
	if q.Type != "" && sub.Type != q.Type {
		return false
	}
	if q.Status != "" && sub.Status != q.Status {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, v := range sub.Data {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func (s *Store) Filter(ctx context.Context, q Query) []models.Submission {
	all := s.ReadAll(ctx)
	out := make([]models.Submission, 0, len(all))
	for _, sub := range all {
		if q.matches(sub) {
			out = append(out, sub)
		}
	}
	return out
}

// UpdateStatus replaces the status of one submission. It returns false when
// the id is unknown, the status is invalid or the write fails.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) bool {
	return s.setStatus(ctx, "update_status", id, status, nil)
}

// MarkViewed moves a new submission to viewed and reports whether it did.
func (s *Store) MarkViewed(ctx context.Context, id string) bool {
	onlyNew := func(cur models.SubmissionStatus) bool { return cur == models.StatusNew }
	return s.setStatus(ctx, "mark_viewed", id, models.StatusViewed, onlyNew)
}

func (s *Store) setStatus(ctx context.Context, op, id string, status models.SubmissionStatus, allow func(models.SubmissionStatus) bool) bool {
	start := s.now()
	if !status.Valid() {
		s.logger.Warn("rejected unknown submission status", map[string]interface{}{
			"submissionId": id,
			"status":       string(status),
		})
		s.finish(op, start, false)
		return false
	}

	updated, ok := s.writeStatus(ctx, op, id, status, allow, start)
	if !ok {
		return false
	}
	for _, o := range s.observers {
		o.SubmissionSaved(ctx, updated.Clone())
	}
	return true
}

func (s *Store) writeStatus(ctx context.Context, op, id string, status models.SubmissionStatus, allow func(models.SubmissionStatus) bool, start time.Time) (models.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load(ctx)
	if err != nil {
		s.storageFailed(op, "failed to update submission", err, map[string]interface{}{"submissionId": id})
		s.finish(op, start, false)
		return models.Submission{}, false
	}

	idx := -1
	for i := range subs {
		if subs[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 || (allow != nil && !allow(subs[idx].Status)) {
		s.finish(op, start, false)
		return models.Submission{}, false
	}

	subs[idx].Status = status
	if err := s.save(ctx, subs); err != nil {
		s.storageFailed(op, "failed to update submission", err, map[string]interface{}{"submissionId": id})
		s.finish(op, start, false)
		return models.Submission{}, false
	}

	s.finish(op, start, true)
	return subs[idx], true
}

// Delete removes the submission with id and rewrites the collection. It
// reports whether the write succeeded, so an unknown id still yields true.
func (s *Store) Delete(ctx context.Context, id string) bool {
	ok, removed := s.remove(ctx, id)
	if removed {
		for _, o := range s.observers {
			o.SubmissionDeleted(ctx, id)
		}
	}
	return ok
}

func (s *Store) remove(ctx context.Context, id string) (ok, removed bool) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.loadForWrite(ctx, "delete")
	if err != nil {
		s.storageFailed("delete", "failed to delete submission", err, map[string]interface{}{"submissionId": id})
		s.finish("delete", start, false)
		return false, false
	}

	filtered := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub.ID != id {
			filtered = append(filtered, sub)
		}
	}

	if err := s.save(ctx, filtered); err != nil {
		s.storageFailed("delete", "failed to delete submission", err, map[string]interface{}{"submissionId": id})
		s.finish("delete", start, false)
		return false, false
	}

	s.finish("delete", start, true)
	return true, len(filtered) != len(subs)
}

// Stats counts the collection by status and by type.
func (s *Store) Stats(ctx context.Context) models.Stats {
	var st models.Stats
	for _, sub := range s.ReadAll(ctx) {
		st.Total++
		switch sub.Status {
		case models.StatusNew:
			st.New++
		case models.StatusViewed:
			st.Viewed++
		case models.StatusResponded:
			st.Responded++
		}
		switch sub.Type {
		case models.SubmissionTypeOrder:
			st.Orders++
		case models.SubmissionTypeContact:
			st.Contacts++
		case models.SubmissionTypeConsultation:
			st.Consultations++
		}
	}
	return st
}

// ClearAll removes the storage key. Failures are only logged.
func (s *Store) ClearAll(ctx context.Context) {
	if !s.clear(ctx) {
		return
	}
	for _, o := range s.observers {
		o.SubmissionsCleared(ctx)
	}
}

func (s *Store) clear(ctx context.Context) bool {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.storageFailed("clear", "failed to clear submissions", err, nil)
		s.finish("clear", start, false)
		return false
	}

	s.finish("clear", start, true)
	s.logger.Warn("all submissions cleared", nil)
	return true
}
