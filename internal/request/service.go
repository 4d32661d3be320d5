package request

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type store interface {
	Create(ctx context.Context, input CreateInput) (*Request, error)
	Get(ctx context.Context, kind Kind, id uuid.UUID) (*Request, error)
	ListByBarangay(ctx context.Context, barangay string, kind Kind) ([]Request, error)
	UpdateStatus(ctx context.Context, arg UpdateStatusParams) (*Request, error)
}

// Service is the document aggregator: it presents a unified feed over the
// four request kinds and routes status mutations to the right one.
type Service struct {
	store store
}

// NewService creates the aggregator over a repository.
func NewService(s store) *Service {
	return &Service{store: s}
}

// Create validates and stores a citizen submission.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Request, error) {
	kind, ok := KindFromSlug(string(input.Kind))
	if !ok {
		return nil, ErrInvalidKind
	}
	input.Kind = kind

	if err := input.Validate(); err != nil {
		return nil, err
	}

	return s.store.Create(ctx, input)
}

// List fetches the four kinds concurrently for one barangay, merges them
// into the common envelope and re-sorts by request date descending.
func (s *Service) List(ctx context.Context, barangay string) ([]Envelope, error) {
	results := make([][]Request, len(Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		i, kind := i, kind
		g.Go(func() error {
			requests, err := s.store.ListByBarangay(gctx, barangay, kind)
			if err != nil {
				return err
			}
			results[i] = requests
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := make([]Envelope, 0)
	for _, requests := range results {
		for _, req := range requests {
			feed = append(feed, req.Envelope())
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].RequestDate.After(feed[j].RequestDate)
	})

	return feed, nil
}

// Get loads a single request, hiding records outside the caller's barangay.
func (s *Service) Get(ctx context.Context, callerBarangay string, kind Kind, id uuid.UUID) (*Request, error) {
	req, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if req.Barangay != callerBarangay {
		return nil, ErrNotFound
	}
	return req, nil
}

// UpdateStatus dispatches a status mutation by type slug. The caller's
// barangay must match the target's; a mismatch reports not-found so staff
// cannot enumerate other barangays' records.
func (s *Service) UpdateStatus(ctx context.Context, callerBarangay, slug string, id uuid.UUID, newStatus string) (*Envelope, error) {
	kind, ok := KindFromSlug(slug)
	if !ok {
		return nil, ErrInvalidKind
	}

	status, ok := ParseStatus(newStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}

	current, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if current.Barangay != callerBarangay {
		return nil, ErrNotFound
	}

	from := current.Status
	if from == "" {
		from = StatusPending
	}
	if !CanTransition(from, status) {
		return nil, ErrInvalidTransition
	}

	params := UpdateStatusParams{Kind: kind, ID: id, Status: status}

	if kind == KindIndigency {
		// legacy flag kept in sync for clients that predate the shared
		// status field
		verified := status == StatusApproved
		params.LegacyVerified = &verified
	}
	if status == StatusApproved {
		now := time.Now().UTC()
		params.DateOfIssuance = &now
	}

	updated, err := s.store.UpdateStatus(ctx, params)
	if err != nil {
		return nil, err
	}

	envelope := updated.Envelope()
	return &envelope, nil
}
