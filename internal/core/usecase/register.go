package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// RegisterLawUseCase stores a statute source file, records its metadata
// and hands indexing off to the worker through the queue.
type RegisterLawUseCase struct {
	repo    ports.LawRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewRegisterLawUseCase(
	repo ports.LawRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *RegisterLawUseCase {
	return &RegisterLawUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *RegisterLawUseCase) Register(ctx context.Context, id, title, category string, body io.Reader) (*domain.Law, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register law", fmt.Errorf("law id is required"))
	}
	if strings.TrimSpace(title) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register law", fmt.Errorf("law title is required"))
	}

	storageKey := sanitizeStorageKey(id) + ".xml"
	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save statute source: %w", err)
	}

	now := time.Now().UTC()
	law := &domain.Law{
		ID:          id,
		Title:       title,
		Category:    category,
		StoragePath: storageKey,
		Status:      domain.LawStatusRegistered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, law); err != nil {
		return nil, fmt.Errorf("create law metadata: %w", err)
	}

	if err := uc.queue.PublishLawRegistered(ctx, law.ID); err != nil {
		return nil, fmt.Errorf("publish registration event: %w", err)
	}
	return law, nil
}

func sanitizeStorageKey(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
