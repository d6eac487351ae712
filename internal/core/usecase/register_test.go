package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/normanhq/norman/internal/core/domain"
)

type fakeLawRepo struct {
	mu       sync.Mutex
	laws     map[string]*domain.Law
	statuses []domain.LawStatus
	createEr error
}

func newFakeLawRepo() *fakeLawRepo {
	return &fakeLawRepo{laws: make(map[string]*domain.Law)}
}

func (f *fakeLawRepo) Create(_ context.Context, law *domain.Law) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEr != nil {
		return f.createEr
	}
	cp := *law
	f.laws[law.ID] = &cp
	return nil
}

func (f *fakeLawRepo) GetByID(_ context.Context, id string) (*domain.Law, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	law, ok := f.laws[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrLawNotFound, "get law", errors.New(id))
	}
	cp := *law
	return &cp, nil
}

func (f *fakeLawRepo) UpdateStatus(_ context.Context, id string, status domain.LawStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if law, ok := f.laws[id]; ok {
		law.Status = status
		law.Error = errMsg
	}
	return nil
}

func (f *fakeLawRepo) SetCounts(_ context.Context, id string, articles, chunks int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if law, ok := f.laws[id]; ok {
		law.ArticleCount = articles
		law.ChunkCount = chunks
	}
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) Save(_ context.Context, key string, r io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.saved[key] = data
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found: " + key)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishLawRegistered(_ context.Context, lawID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, lawID)
	return nil
}

func (f *fakeQueue) SubscribeLawRegistered(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func TestRegisterStoresRecordsAndPublishes(t *testing.T) {
	repo := newFakeLawRepo()
	storage := newFakeStorage()
	queue := &fakeQueue{}
	uc := NewRegisterLawUseCase(repo, storage, queue)

	law, err := uc.Register(context.Background(), "322AC0000000049", "労働基準法", "労働", strings.NewReader("<Law/>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if law.Status != domain.LawStatusRegistered {
		t.Fatalf("expected registered status, got %s", law.Status)
	}
	if _, ok := storage.saved["322AC0000000049.xml"]; !ok {
		t.Fatalf("source file not saved, keys: %v", storage.saved)
	}
	if len(queue.published) != 1 || queue.published[0] != law.ID {
		t.Fatalf("registration event not published: %v", queue.published)
	}
	if _, err := repo.GetByID(context.Background(), law.ID); err != nil {
		t.Fatalf("metadata row missing: %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	uc := NewRegisterLawUseCase(newFakeLawRepo(), newFakeStorage(), &fakeQueue{})

	if _, err := uc.Register(context.Background(), " ", "労働基準法", "", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank id must be rejected, got %v", err)
	}
	if _, err := uc.Register(context.Background(), "id-1", "", "", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank title must be rejected, got %v", err)
	}
}

func TestRegisterSanitizesStorageKey(t *testing.T) {
	storage := newFakeStorage()
	uc := NewRegisterLawUseCase(newFakeLawRepo(), storage, &fakeQueue{})

	if _, err := uc.Register(context.Background(), "../etc/passwd", "t", "", strings.NewReader("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for key := range storage.saved {
		if strings.ContainsAny(key, "/\\") {
			t.Fatalf("storage key must not contain path separators: %q", key)
		}
	}
}

func TestRegisterStorageFailureAborts(t *testing.T) {
	repo := newFakeLawRepo()
	storage := newFakeStorage()
	storage.saveErr = errors.New("disk full")
	uc := NewRegisterLawUseCase(repo, storage, &fakeQueue{})

	if _, err := uc.Register(context.Background(), "id-1", "t", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected save failure to abort registration")
	}
	if len(repo.laws) != 0 {
		t.Fatal("no metadata row should exist after a failed save")
	}
}
