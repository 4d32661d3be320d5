package barangay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Service holds the rules for barangay lookup and registration. Lookups sit
// on the signup hot path, so resolved entries are cached briefly.
type Service struct {
	repo     *Repository
	cache    sync.Map
	cacheTTL time.Duration
}

type cachedBarangay struct {
	barangay Barangay
	expireAt time.Time
}

// NewService creates a new Service instance.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, cacheTTL: 2 * time.Minute}
}

// Resolve finds a barangay by slug.
func (s *Service) Resolve(ctx context.Context, slug string) (*Barangay, error) {
	normalized := NormalizeSlug(slug)
	if normalized == "" {
		return nil, ErrNotFound
	}

	if v, ok := s.cache.Load(normalized); ok {
		entry := v.(cachedBarangay)
		if time.Now().Before(entry.expireAt) {
			copy := entry.barangay
			return &copy, nil
		}
		s.cache.Delete(normalized)
	}

	b, err := s.repo.GetBySlug(ctx, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.Store(normalized, cachedBarangay{barangay: *b, expireAt: time.Now().Add(s.cacheTTL)})

	copy := *b
	return &copy, nil
}

// Create registers a new barangay.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Barangay, error) {
	input.Slug = NormalizeSlug(input.Slug)
	if input.Slug == "" {
		return nil, errors.New("slug is required")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, errors.New("display name is required")
	}

	b, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.cache.Store(b.Slug, cachedBarangay{barangay: *b, expireAt: time.Now().Add(s.cacheTTL)})
	return b, nil
}

// List returns every registered barangay.
func (s *Service) List(ctx context.Context) ([]Barangay, error) {
	return s.repo.List(ctx)
}

// NormalizeSlug lowercases and hyphenates a barangay identifier.
func NormalizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
