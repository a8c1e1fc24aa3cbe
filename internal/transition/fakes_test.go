package transition

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/eventbus"
)

type fakeRevisionRepo struct {
	mu        sync.Mutex
	revisions map[uuid.UUID]domain.Revision
}

func newFakeRevisionRepo() *fakeRevisionRepo {
	return &fakeRevisionRepo{revisions: make(map[uuid.UUID]domain.Revision)}
}

func (f *fakeRevisionRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.revisions {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRevisionRepo) FindByUserID(_ context.Context, userID uuid.UUID, offset, limit int) ([]domain.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Revision
	for _, r := range f.revisions {
		if r.UserID == userID {
			all = append(all, r)
		}
	}
	// stable-ish order by revision ID string for deterministic paging
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].RevisionID.String() < all[i].RevisionID.String() {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeRevisionRepo) FindOneByUUID(_ context.Context, revisionID, userID uuid.UUID) (*domain.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.revisions[revisionID]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

func (f *fakeRevisionRepo) Insert(_ context.Context, r domain.Revision) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions[r.RevisionID] = r
	return true, nil
}

func (f *fakeRevisionRepo) RemoveOneByUUID(_ context.Context, revisionID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.revisions, revisionID)
	return nil
}

func (f *fakeRevisionRepo) RemoveByUserID(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.revisions {
		if r.UserID == userID {
			delete(f.revisions, id)
		}
	}
	return nil
}

type statusKey struct {
	userID uuid.UUID
	typ    domain.TransitionType
}

type fakeStatusStore struct {
	mu       sync.Mutex
	statuses map[statusKey]*domain.TransitionStatus
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{statuses: make(map[statusKey]*domain.TransitionStatus)}
}

func (f *fakeStatusStore) key(userID uuid.UUID, t domain.TransitionType) statusKey {
	return statusKey{userID: userID, typ: t}
}

func (f *fakeStatusStore) ensure(userID uuid.UUID, t domain.TransitionType) *domain.TransitionStatus {
	k := f.key(userID, t)
	s, ok := f.statuses[k]
	if !ok {
		fresh := domain.NewTransitionStatus(userID.String(), t, domain.TransitionStateInProgress)
		s = &fresh
		f.statuses[k] = s
	}
	return s
}

func (f *fakeStatusStore) GetStatus(_ context.Context, userID uuid.UUID, t domain.TransitionType) (*domain.TransitionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[f.key(userID, t)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStatusStore) SetStatus(_ context.Context, userID uuid.UUID, t domain.TransitionType, status domain.TransitionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(userID, t).Status = status
	return nil
}

func (f *fakeStatusStore) GetPagingProgress(_ context.Context, userID uuid.UUID, t domain.TransitionType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensure(userID, t).PagingProgress, nil
}

func (f *fakeStatusStore) SetPagingProgress(_ context.Context, userID uuid.UUID, t domain.TransitionType, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(userID, t).PagingProgress = progress
	return nil
}

func (f *fakeStatusStore) GetIntegrityProgress(_ context.Context, userID uuid.UUID, t domain.TransitionType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensure(userID, t).IntegrityProgress, nil
}

func (f *fakeStatusStore) SetIntegrityProgress(_ context.Context, userID uuid.UUID, t domain.TransitionType, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(userID, t).IntegrityProgress = progress
	return nil
}

func (f *fakeStatusStore) Remove(_ context.Context, userID uuid.UUID, t domain.TransitionType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.statuses, f.key(userID, t))
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.EventKind
}

func (f *fakePublisher) Publish(_ context.Context, kind eventbus.EventKind, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, kind)
	return nil
}

func (f *fakePublisher) count(kind eventbus.EventKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.events {
		if k == kind {
			n++
		}
	}
	return n
}

func newRevision(userID uuid.UUID, createdAt, updatedAt int64) domain.Revision {
	return domain.Revision{
		RevisionID:  uuid.New(),
		UserID:      userID,
		ContentType: "Note",
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}
