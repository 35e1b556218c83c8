package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// --- Mock implementations ---

type mockCouponRepo struct {
	byID    map[string]*Coupon
	updated *Coupon
}

func newMockRepo(coupons ...Coupon) *mockCouponRepo {
	m := &mockCouponRepo{byID: make(map[string]*Coupon)}
	for i := range coupons {
		m.byID[coupons[i].ID] = &coupons[i]
	}
	return m
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*Coupon, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("coupon", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) GetByCode(_ context.Context, code string) (*Coupon, error) {
	for _, c := range m.byID {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrInvalidCoupon
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *Coupon) error {
	cp := *c
	m.byID[c.ID] = &cp
	m.updated = &cp
	return nil
}

func (m *mockCouponRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

// --- Helpers ---

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(coupons ...Coupon) (*Service, *mockCouponRepo) {
	repo := newMockRepo(coupons...)
	svc := NewService(repo)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func save10() Coupon {
	return Coupon{
		ID:                "c1",
		Code:              "SAVE10",
		DiscountPercent:   nullDec("10"),
		MinPurchaseAmount: nullDec("50"),
		ValidFrom:         fixedNow.AddDate(0, -1, 0),
		ValidTo:           fixedNow.AddDate(0, 1, 0),
		IsActive:          true,
	}
}

// --- Tests ---

func TestService_Apply(t *testing.T) {
	expired := save10()
	expired.ID, expired.Code, expired.ValidTo = "c2", "OLD", fixedNow.Add(-time.Hour)
	inactive := save10()
	inactive.ID, inactive.Code, inactive.IsActive = "c3", "OFF", false

	svc, _ := newTestService(save10(), expired, inactive)

	tests := []struct {
		name      string
		code      string
		amount    string
		wantTotal string
		wantErr   error
	}{
		{name: "applies percent", code: "SAVE10", amount: "80", wantTotal: "72"},
		{name: "unknown code", code: "NOPE", amount: "80", wantErr: ErrInvalidCoupon},
		{name: "case sensitive", code: "save10", amount: "80", wantErr: ErrInvalidCoupon},
		{name: "expired", code: "OLD", amount: "80", wantErr: ErrCouponExpired},
		{name: "inactive", code: "OFF", amount: "80", wantErr: ErrInvalidCoupon},
		{name: "below minimum", code: "SAVE10", amount: "40", wantErr: ErrMinAmountNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := svc.Apply(context.Background(), tt.code, dec(tt.amount))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, app)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.wantTotal).Equal(app.NewTotal), "expected %s, got %s", tt.wantTotal, app.NewTotal)
			assert.True(t, app.Discount.Add(app.NewTotal).Equal(dec(tt.amount)))
		})
	}
}

func TestService_CreateRejectsDuplicateCode(t *testing.T) {
	svc, _ := newTestService(save10())

	_, err := svc.Create(context.Background(), Input{
		Code:           "SAVE10",
		DiscountAmount: nullDec("5"),
		ValidFrom:      fixedNow,
		ValidTo:        fixedNow.AddDate(0, 0, 7),
		IsActive:       true,
	})
	require.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestService_CreateAndUpdate(t *testing.T) {
	svc, repo := newTestService()

	c, err := svc.Create(context.Background(), Input{
		Code:           "WELCOME",
		DiscountAmount: nullDec("5"),
		ValidFrom:      fixedNow,
		ValidTo:        fixedNow.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, DiscountFixed, c.Type())
	assert.False(t, c.IsActive)

	updated, err := svc.Update(context.Background(), c.ID, Input{
		Code:            "WELCOME",
		DiscountPercent: nullDec("20"),
		ValidFrom:       fixedNow,
		ValidTo:         fixedNow.AddDate(0, 0, 7),
		IsActive:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, DiscountPercentage, updated.Type())
	assert.False(t, repo.byID[c.ID].DiscountAmount.Valid)
}

func TestService_Activate(t *testing.T) {
	expired := save10()
	expired.ValidTo = fixedNow.Add(-time.Minute)
	expired.IsActive = false

	svc, repo := newTestService(expired)

	_, err := svc.Activate(context.Background(), "c1")
	require.ErrorIs(t, err, ErrCouponExpired)
	assert.Nil(t, repo.updated)

	valid := save10()
	valid.IsActive = false
	svc, repo = newTestService(valid)

	c, err := svc.Activate(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.True(t, repo.byID["c1"].IsActive)

	c, err = svc.Deactivate(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, c.IsActive)
}

func TestService_ApplyAtUsesGivenTime(t *testing.T) {
	svc, _ := newTestService(save10())

	_, err := svc.ApplyAt(context.Background(), "SAVE10", decimal.NewFromInt(100), fixedNow.AddDate(0, 2, 0))
	assert.ErrorIs(t, err, ErrCouponExpired)
}
