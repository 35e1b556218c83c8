// Package address manages user shipping and billing addresses.
package address

import (
	"context"
	"strings"
	"time"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// ErrInUse is returned when deleting an address that orders still reference.
var ErrInUse = apperr.New(apperr.KindConflict, apperr.CodeAddressDeleteConstraint,
	"address is referenced by an order and cannot be deleted")

// NotFound returns the not-found error for address id.
func NotFound(id string) error {
	return apperr.NotFound("address", id)
}

// Address is a postal address owned by a user. At most one address per user
// is the default.
type Address struct {
	ID            string
	UserID        string
	Name          string
	RecipientName string
	Line1         string
	Line2         string
	City          string
	State         string
	PostalCode    string
	Country       string
	Phone         string
	IsDefault     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Input holds the editable fields of an address.
type Input struct {
	Name          string
	RecipientName string
	Line1         string
	Line2         string
	City          string
	State         string
	PostalCode    string
	Country       string
	Phone         string
	IsDefault     bool
}

// Validate checks that all required fields are present.
func (in Input) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"recipientName", in.RecipientName},
		{"line1", in.Line1},
		{"city", in.City},
		{"postalCode", in.PostalCode},
		{"country", in.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.New(apperr.KindInvalidInput, apperr.CodeAddressInvalid, r.field+" is required").
				WithField(r.field)
		}
	}
	return nil
}

func (in Input) apply(a *Address) {
	a.Name = strings.TrimSpace(in.Name)
	a.RecipientName = strings.TrimSpace(in.RecipientName)
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.PostalCode = strings.TrimSpace(in.PostalCode)
	a.Country = strings.TrimSpace(in.Country)
	a.Phone = strings.TrimSpace(in.Phone)
}

// Repository provides address persistence. Every lookup is scoped to the
// owning user; an address of another user is reported as not found.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, userID, id string) error
	// ClearDefault unsets the default flag on all of the user's addresses.
	ClearDefault(ctx context.Context, userID string) error
	// InUse reports whether any order references the address.
	InUse(ctx context.Context, id string) (bool, error)
}
