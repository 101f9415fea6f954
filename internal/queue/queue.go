// Package queue manages the batch ingestion queue: uploaded question
// photos move through independent per-item lifecycles (pending →
// processing/ingesting → ready/saved/error) with retries and partial
// failure isolated per item. State lives in the store so the queue
// survives restarts.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"zujuan/internal/model"
	"zujuan/internal/store"
)

var (
	// ErrNotFound means the item is not in the queue.
	ErrNotFound = errors.New("queue item not found")
	// ErrNotRunnable means the item is not in pending or error state.
	ErrNotRunnable = errors.New("queue item is not pending or error")
	// ErrNotReady means save was requested for an item that has no
	// reviewed analysis yet.
	ErrNotReady = errors.New("queue item is not ready")
)

// Analyzer turns an uploaded image into a structured analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType, fileName string) (*model.AnalysisResult, error)
}

// Saver persists a finished question; satisfied by the store.
type Saver interface {
	InsertQuestion(q model.Question) (string, error)
}

// Service owns the queue. All status changes go through guarded store
// transitions, so a completion for an item that was removed or restarted
// in the meantime is silently discarded.
type Service struct {
	store *store.Store
	ai    Analyzer
}

// FileUpload is one file received from the batch upload form.
type FileUpload struct {
	Name     string
	MimeType string
	Data     []byte
}

func New(st *store.Store, analyzer Analyzer) *Service {
	return &Service{store: st, ai: analyzer}
}

// AddFiles appends new pending items, one per file, each with a fresh id.
func (s *Service) AddFiles(files []FileUpload) ([]model.IngestItem, error) {
	items := make([]model.IngestItem, 0, len(files))
	for _, f := range files {
		item := model.IngestItem{
			ID:       uuid.NewString(),
			FileName: f.Name,
			MimeType: f.MimeType,
			Content:  f.Data,
			Status:   model.IngestPending,
		}
		if err := s.store.InsertIngestItem(item); err != nil {
			return items, fmt.Errorf("queue file %s: %w", f.Name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// List returns the whole queue in insertion order.
func (s *Service) List() ([]model.IngestItem, error) {
	return s.store.ListIngestItems()
}

// Get returns one item, or ErrNotFound.
func (s *Service) Get(id string) (*model.IngestItem, error) {
	item, err := s.store.GetIngestItem(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Remove deletes an item unconditionally. Any in-flight operation on it
// settles into nothing because its guarded update no longer matches.
func (s *Service) Remove(id string) error {
	return s.store.DeleteIngestItem(id)
}

// Restore prepares the queue after a restart: saved items are dropped and
// in-flight ones collapse back to pending.
func (s *Service) Restore() error {
	return s.store.RestoreIngestQueue()
}

// RunPreview analyzes one pending or error item. The item ends in ready
// with a validated result, or in error with a message; it is never left in
// processing.
func (s *Service) RunPreview(ctx context.Context, id string) (*model.IngestItem, error) {
	item, err := s.claim(id, model.IngestProcessing)
	if err != nil {
		return nil, err
	}

	result, err := s.analyze(ctx, item)
	if err != nil {
		return s.settle(id, model.IngestProcessing, model.IngestItem{
			Status: model.IngestError,
			Error:  err.Error(),
		})
	}
	return s.settle(id, model.IngestProcessing, model.IngestItem{
		Status: model.IngestReady,
		Result: result,
	})
}

// Ingest analyzes and persists one pending or error item in a single
// step, skipping the review pause. Success is terminal.
func (s *Service) Ingest(ctx context.Context, id, createdBy string) (*model.IngestItem, error) {
	item, err := s.claim(id, model.IngestIngesting)
	if err != nil {
		return nil, err
	}

	result, err := s.analyze(ctx, item)
	if err != nil {
		return s.settle(id, model.IngestIngesting, model.IngestItem{
			Status: model.IngestError,
			Error:  err.Error(),
		})
	}
	questionID, err := s.store.InsertQuestion(result.ToQuestion(createdBy))
	if err != nil {
		return s.settle(id, model.IngestIngesting, model.IngestItem{
			Status: model.IngestError,
			Result: result,
			Error:  err.Error(),
		})
	}
	return s.settle(id, model.IngestIngesting, model.IngestItem{
		Status:     model.IngestSaved,
		Result:     result,
		QuestionID: questionID,
	})
}

// Save persists an item whose analysis was previewed and possibly edited.
// The result is revalidated first; a precondition failure leaves the item
// untouched in ready. A persistence failure returns the item to ready with
// the error recorded, never to saved.
func (s *Service) Save(ctx context.Context, id, createdBy string, edited *model.AnalysisResult) (*model.IngestItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if item.Status != model.IngestReady {
		return nil, ErrNotReady
	}

	result := item.Result
	if edited != nil {
		result = edited
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.store.TransitionIngestItem(id, []model.IngestStatus{model.IngestReady}, model.IngestProcessing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotReady
	}

	questionID, err := s.store.InsertQuestion(result.ToQuestion(createdBy))
	if err != nil {
		slog.Warn("save queue item", "id", id, "error", err)
		return s.settle(id, model.IngestProcessing, model.IngestItem{
			Status: model.IngestReady,
			Result: result,
			Error:  err.Error(),
		})
	}
	return s.settle(id, model.IngestProcessing, model.IngestItem{
		Status:     model.IngestSaved,
		Result:     result,
		QuestionID: questionID,
	})
}

// RunAll previews every pending or error item, one at a time so the AI
// backend is never hit concurrently. Per-item failures are recorded on the
// item and do not stop the batch.
func (s *Service) RunAll(ctx context.Context) error {
	return s.forEachRunnable(ctx, func(ctx context.Context, id string) error {
		_, err := s.RunPreview(ctx, id)
		return err
	})
}

// IngestAll ingests every pending or error item sequentially.
func (s *Service) IngestAll(ctx context.Context, createdBy string) error {
	return s.forEachRunnable(ctx, func(ctx context.Context, id string) error {
		_, err := s.Ingest(ctx, id, createdBy)
		return err
	})
}

func (s *Service) forEachRunnable(ctx context.Context, op func(context.Context, string) error) error {
	items, err := s.store.ListIngestItems()
	if err != nil {
		return err
	}
	for _, item := range items {
		if !item.Status.Runnable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch err := op(ctx, item.ID); {
		case err == nil, errors.Is(err, ErrNotFound), errors.Is(err, ErrNotRunnable):
			// Removed or already claimed items are not batch failures.
		default:
			slog.Warn("batch queue operation", "id", item.ID, "error", err)
		}
	}
	return nil
}

// claim moves a runnable item into an in-flight status and returns its
// snapshot, including the stored file bytes.
func (s *Service) claim(id string, to model.IngestStatus) (*model.IngestItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !item.Status.Runnable() {
		return nil, ErrNotRunnable
	}
	ok, err := s.store.TransitionIngestItem(id,
		[]model.IngestStatus{model.IngestPending, model.IngestError}, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRunnable
	}
	item.Status = to
	return item, nil
}

func (s *Service) analyze(ctx context.Context, item *model.IngestItem) (*model.AnalysisResult, error) {
	result, err := s.ai.Analyze(ctx, item.Content, item.MimeType, item.FileName)
	if err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// settle finishes an in-flight operation. A false from the store means the
// item was removed or restarted while the operation ran; the outcome is
// dropped per the stale-response rule.
func (s *Service) settle(id string, from model.IngestStatus, outcome model.IngestItem) (*model.IngestItem, error) {
	ok, err := s.store.SettleIngestItem(id, from, outcome)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Debug("discarding stale queue completion", "id", id)
		return nil, ErrNotFound
	}
	return s.Get(id)
}
