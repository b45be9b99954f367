package formstore

import (
	"context"
	"time"

	"swedana-forms/internal/models"
)

// DefaultKey is the slot the collection lives under.
const DefaultKey = "swedana_form_submissions"

// DefaultDateLayout renders export dates like "3/14/2025 6:05:09 PM".
const DefaultDateLayout = "1/2/2006 3:04:05 PM"

// Observer is told about every successful write, on the writer's goroutine
// after the store lock is released.
type Observer interface {
	SubmissionSaved(ctx context.Context, sub models.Submission)
	SubmissionDeleted(ctx context.Context, id string)
	SubmissionsCleared(ctx context.Context)
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	Operation(op string, ok bool, d time.Duration)
	StorageFailure(op string)
	Created(t models.SubmissionType)
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, bool, time.Duration) {}
func (nopRecorder) StorageFailure(string)                 {}
func (nopRecorder) Created(models.SubmissionType)         {}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the default "<ms>-<random>" ids.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMaxBytes caps the serialized collection size; 0 means unlimited.
func WithMaxBytes(n int) Option {
	return func(s *Store) { s.maxBytes = n }
}

func WithDateFormat(layout string, loc *time.Location) Option {
	return func(s *Store) {
		if layout != "" {
			s.dateLayout = layout
		}
		if loc != nil {
			s.location = loc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}
