package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/txn"
)

// Service implements the address book.
type Service struct {
	tx   txn.Runner
	repo Repository
	now  func() time.Time
}

// NewService creates an address Service.
func NewService(tx txn.Runner, repo Repository) *Service {
	return &Service{tx: tx, repo: repo, now: time.Now}
}

// List returns the user's addresses.
func (s *Service) List(ctx context.Context, userID string) ([]Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one of the user's addresses.
func (s *Service) Get(ctx context.Context, userID, id string) (*Address, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create adds an address. The user's first address becomes the default.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*Address, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	a := &Address{
		ID:        uuid.New().String(),
		UserID:    userID,
		IsDefault: in.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(a)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			if err := s.repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return a, nil
}

// Update replaces the editable fields of an address.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*Address, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var a *Address
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		in.apply(a)
		if in.IsDefault && !a.IsDefault {
			if err := s.repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
			a.IsDefault = true
		}
		a.UpdatedAt = s.now()
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update address")
	}
	return a, nil
}

// SetDefault makes the address the user's only default.
func (s *Service) SetDefault(ctx context.Context, userID, id string) (*Address, error) {
	var a *Address
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		a.IsDefault = true
		a.UpdatedAt = s.now()
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, errors.Wrap(err, "set default address")
	}
	return a, nil
}

// Delete removes an address that no order references.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, userID, id); err != nil {
			return err
		}
		used, err := s.repo.InUse(ctx, id)
		if err != nil {
			return errors.Wrap(err, "check address usage")
		}
		if used {
			return ErrInUse
		}
		return s.repo.Delete(ctx, userID, id)
	})
}
