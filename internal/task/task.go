// Package task tracks the lifecycle of asynchronous analysis jobs so
// clients can poll for results instead of holding a request open.
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is a polled view of a background job.
type Task struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Manager stores tasks with a fixed retention window. Finished tasks stay
// visible until the window expires and are then dropped.
type Manager struct {
	mu    sync.Mutex
	tasks *gocache.Cache
}

const retention = 2 * time.Hour

func NewManager() *Manager {
	return &Manager{tasks: gocache.New(retention, 10*time.Minute)}
}

// Create registers a new pending task and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	now := time.Now()
	m.tasks.Set(id, &Task{ID: id, Status: StatusPending, CreatedAt: now, UpdatedAt: now}, retention)
	return id
}

// Get returns a snapshot of the task, or nil if it is unknown or expired.
func (m *Manager) Get(id string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.tasks.Get(id)
	if !ok {
		return nil
	}
	snapshot := *v.(*Task)
	return &snapshot
}

// SetProcessing marks the task as running with a progress percentage.
func (m *Manager) SetProcessing(id string, progress int) {
	m.update(id, func(t *Task) {
		t.Status = StatusProcessing
		t.Progress = progress
	})
}

// Complete stores the result and marks the task finished.
func (m *Manager) Complete(id string, result any) {
	m.update(id, func(t *Task) {
		t.Status = StatusCompleted
		t.Progress = 100
		t.Result = result
	})
}

// Fail records the error and marks the task failed.
func (m *Manager) Fail(id string, errMsg string) {
	m.update(id, func(t *Task) {
		t.Status = StatusFailed
		t.Error = errMsg
	})
}

func (m *Manager) update(id string, fn func(*Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.tasks.Get(id)
	if !ok {
		return
	}
	t := v.(*Task)
	fn(t)
	t.UpdatedAt = time.Now()
}
