package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/returns"
)

const returnColumns = `id, order_id, user_id, status, reason, refund_amount, refund_status, notes,
		return_date, updated_at`

const (
	createReturnSQL = `INSERT INTO returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	createReturnItemSQL = `INSERT INTO return_items
		(id, return_id, order_item_id, product_id, quantity, reason, condition, comments, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getReturnSQL = `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`

	getReturnForUpdateSQL = getReturnSQL + ` FOR UPDATE`

	listReturnsByUserSQL = `SELECT ` + returnColumns + ` FROM returns WHERE user_id = $1
		ORDER BY return_date DESC, id`

	listReturnsByOrderSQL = `SELECT ` + returnColumns + ` FROM returns WHERE order_id = $1
		ORDER BY return_date DESC, id`

	listReturnsSQL = `SELECT ` + returnColumns + ` FROM returns WHERE ($1 = '' OR status = $1)
		ORDER BY return_date DESC, id`

	listReturnItemsSQL = `SELECT return_id, id, order_item_id, product_id, quantity, reason, condition, comments
		FROM return_items WHERE return_id = ANY($1) ORDER BY return_id, position`

	updateReturnSQL = `UPDATE returns SET status = $2, refund_amount = $3, refund_status = $4, notes = $5,
		updated_at = $6
		WHERE id = $1`
)

var _ returns.Repository = (*ReturnRepository)(nil)

// ReturnRepository implements returns.Repository backed by PostgreSQL.
type ReturnRepository struct {
	db *DB
}

// NewReturnRepository returns a ReturnRepository that uses db.
func NewReturnRepository(db *DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

func (r *ReturnRepository) Create(ctx context.Context, ret *returns.Return) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		batch.Queue(createReturnSQL,
			ret.ID, ret.OrderID, ret.UserID, ret.Status, ret.Reason, ret.RefundAmount, ret.RefundStatus,
			ret.Notes, ret.ReturnDate, ret.UpdatedAt)
		for i, it := range ret.Items {
			batch.Queue(createReturnItemSQL,
				it.ID, ret.ID, it.OrderItemID, it.ProductID, it.Quantity, it.Reason, it.Condition, it.Comments, i)
		}
		if err := r.db.q(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("creating return %q: %w", ret.ID, err)
		}
		return nil
	})
}

func (r *ReturnRepository) Get(ctx context.Context, id string) (*returns.Return, error) {
	return r.getOne(ctx, getReturnSQL, id)
}

func (r *ReturnRepository) GetForUpdate(ctx context.Context, id string) (*returns.Return, error) {
	return r.getOne(ctx, getReturnForUpdateSQL, id)
}

func (r *ReturnRepository) ListByUser(ctx context.Context, userID string) ([]returns.Return, error) {
	return r.list(ctx, listReturnsByUserSQL, userID)
}

func (r *ReturnRepository) ListByOrder(ctx context.Context, orderID string) ([]returns.Return, error) {
	return r.list(ctx, listReturnsByOrderSQL, orderID)
}

func (r *ReturnRepository) List(ctx context.Context, status returns.Status) ([]returns.Return, error) {
	return r.list(ctx, listReturnsSQL, string(status))
}

func (r *ReturnRepository) Update(ctx context.Context, ret *returns.Return) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateReturnSQL,
		ret.ID, ret.Status, ret.RefundAmount, ret.RefundStatus, ret.Notes, ret.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating return %q: %w", ret.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return returns.NotFound(ret.ID)
	}
	return nil
}

func (r *ReturnRepository) getOne(ctx context.Context, sql, id string) (*returns.Return, error) {
	rows, err := r.db.q(ctx).Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting return %q: %w", id, err)
	}
	ret, err := pgx.CollectExactlyOneRow(rows, scanReturn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, returns.NotFound(id)
		}
		return nil, fmt.Errorf("getting return %q: %w", id, err)
	}

	list := []returns.Return{ret}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *ReturnRepository) list(ctx context.Context, sql, arg string) ([]returns.Return, error) {
	rows, err := r.db.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanReturn)
	if err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ReturnRepository) loadItems(ctx context.Context, list []returns.Return) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, ret := range list {
		ids[i] = ret.ID
		index[ret.ID] = i
	}

	rows, err := r.db.q(ctx).Query(ctx, listReturnItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing return items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			returnID string
			it       returns.Item
		)
		err := rows.Scan(&returnID, &it.ID, &it.OrderItemID, &it.ProductID, &it.Quantity, &it.Reason,
			&it.Condition, &it.Comments)
		if err != nil {
			return fmt.Errorf("scanning return item: %w", err)
		}
		i := index[returnID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func scanReturn(row pgx.CollectableRow) (returns.Return, error) {
	var ret returns.Return
	err := row.Scan(
		&ret.ID, &ret.OrderID, &ret.UserID, &ret.Status, &ret.Reason, &ret.RefundAmount, &ret.RefundStatus,
		&ret.Notes, &ret.ReturnDate, &ret.UpdatedAt,
	)
	return ret, err
}
