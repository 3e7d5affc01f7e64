package service

// In-memory реализации репозиториев для тестов сервисного слоя.
// Повторяют контракты PostgreSQL-реализаций, включая CAS-семантику
// CommitDownload: mutex на время всей операции имитирует транзакцию.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

type memStore struct {
	mu     sync.Mutex
	shares map[string]*model.FileShare // по file_id
	events []*model.ActivityEvent
	nexSeq int64
}

func newMemStore() *memStore {
	return &memStore{shares: make(map[string]*model.FileShare), nexSeq: 1}
}

// clone защищает внутреннее состояние от мутаций вызывающим кодом.
func clone(f *model.FileShare) *model.FileShare {
	c := *f
	return &c
}

func (s *memStore) appendEventLocked(e *model.ActivityEvent) {
	e.Seq = s.nexSeq
	s.nexSeq++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	ec := *e
	s.events = append(s.events, &ec)
}

// --- FileShareRepository ---

type memShareRepo struct{ s *memStore }

func (r *memShareRepo) Create(_ context.Context, f *model.FileShare) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shares[f.FileID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range r.s.shares {
		if existing.AccessToken == f.AccessToken {
			return repository.ErrConflict
		}
	}
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	r.s.shares[f.FileID] = clone(f)
	return nil
}

func (r *memShareRepo) GetByID(_ context.Context, fileID string) (*model.FileShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.shares[fileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(f), nil
}

func (r *memShareRepo) GetByToken(_ context.Context, token string) (*model.FileShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.shares {
		if f.AccessToken == token {
			return clone(f), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memShareRepo) Revoke(_ context.Context, fileID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.shares[fileID]
	if !ok {
		return repository.ErrNotFound
	}
	f.Status = model.StatusRevoked
	f.UpdatedAt = time.Now()
	return nil
}

func (r *memShareRepo) CommitDownload(_ context.Context, fileID string, expectedUsed int, event *model.ActivityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.shares[fileID]
	if !ok {
		return repository.ErrStale
	}
	if f.UsedDownloads != expectedUsed || f.Status != model.StatusActive {
		return repository.ErrStale
	}
	f.UsedDownloads++
	f.UpdatedAt = time.Now()
	r.s.appendEventLocked(event)
	return nil
}

// --- ActivityRepository ---

type memActivityRepo struct {
	s *memStore
	// failAppend имитирует отказ записи события для негативных сценариев.
	failAppend bool
}

func (r *memActivityRepo) Append(_ context.Context, event *model.ActivityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.failAppend {
		return fmt.Errorf("имитация отказа лога аудита")
	}
	r.s.appendEventLocked(event)
	return nil
}

func (r *memActivityRepo) ListByFileID(_ context.Context, fileID string, limit int) ([]*model.ActivityEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.ActivityEvent
	for _, e := range r.s.events {
		if e.FileID != nil && *e.FileID == fileID {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memActivityRepo) ListRecent(_ context.Context, limit int) ([]*model.ActivityEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.ActivityEvent
	for i := len(r.s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.s.events[i])
	}
	return out, nil
}

// --- ContentRepository ---

type memContentRepo struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{data: make(map[string]string)}
}

func (r *memContentRepo) Put(_ context.Context, ref, data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[ref]; ok {
		return repository.ErrConflict
	}
	r.data[ref] = data
	return nil
}

func (r *memContentRepo) Get(_ context.Context, ref string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[ref]
	if !ok {
		return "", repository.ErrNotFound
	}
	return d, nil
}
