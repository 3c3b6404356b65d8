package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrWriteDropped means the store accepted the update but affected zero
	// rows. Distinct from a transport error: it usually points at a
	// row-level policy silently filtering the write, not at a data problem.
	ErrWriteDropped = errors.New("order update silently dropped by store")
)

type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ActiveOrders(ctx context.Context) ([]Order, error)
	OrdersBySession(ctx context.Context, sessionID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error)
	InsertFeedback(ctx context.Context, fb *Feedback) error
	StatusStats(ctx context.Context) ([]StatusStat, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, orderInput *Order) (orderID uuid.UUID, err error) {
	finalOrderID := orderInput.ID
	if finalOrderID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		finalOrderID = genID
	}
	orderInput.ID = finalOrderID

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id_attempted", finalOrderID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id_attempted", finalOrderID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Stringer("order_id", finalOrderID).Msg("Failed to commit transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()

	queryOrder := `
		INSERT INTO cafe.orders (id, session_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING display_number
	`
	err = tx.QueryRow(ctx, queryOrder,
		finalOrderID,
		orderInput.SessionID,
		string(orderInput.Status),
		orderInput.TotalCents,
		now,
	).Scan(&orderInput.DisplayNumber)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}
	orderInput.CreatedAt = now
	orderInput.UpdatedAt = now

	for i := range orderInput.Items {
		item := &orderInput.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = finalOrderID
		item.CreatedAt = now

		queryItem := `
			INSERT INTO cafe.order_items (id, order_id, name, price_cents, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.Exec(ctx, queryItem,
			item.ID,
			finalOrderID,
			item.Name,
			item.PriceCents,
			item.Quantity,
			item.CreatedAt,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to insert order item for order %s: %w", finalOrderID, err)
		}
	}
	return finalOrderID, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT id, display_number, session_id, status, total_cents, created_at, updated_at
		FROM cafe.orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&o.ID,
		&o.DisplayNumber,
		&o.SessionID,
		&o.Status,
		&o.TotalCents,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	items, err := r.itemsForOrders(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	o.Items = items[orderID]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}

	return &o, nil
}

// ActiveOrders returns every order not yet COMPLETED, newest first, with
// line items attached. No session filter: the kitchen sees all customers.
func (r *postgresRepository) ActiveOrders(ctx context.Context) ([]Order, error) {
	query := `
		SELECT id, display_number, session_id, status, total_cents, created_at, updated_at
		FROM cafe.orders
		WHERE status <> $1
		ORDER BY created_at DESC
	`
	return r.queryOrders(ctx, query, string(StatusCompleted))
}

func (r *postgresRepository) OrdersBySession(ctx context.Context, sessionID string) ([]Order, error) {
	query := `
		SELECT id, display_number, session_id, status, total_cents, created_at, updated_at
		FROM cafe.orders
		WHERE session_id = $1
		ORDER BY created_at DESC
	`
	return r.queryOrders(ctx, query, sessionID)
}

func (r *postgresRepository) queryOrders(ctx context.Context, query string, arg any) ([]Order, error) {
	orderRows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var o Order
		err := orderRows.Scan(
			&o.ID,
			&o.DisplayNumber,
			&o.SessionID,
			&o.Status,
			&o.TotalCents,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}

	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	items, err := r.itemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for orderID, orderItems := range items {
		if o, ok := ordersMap[orderID]; ok {
			o.Items = orderItems
		}
	}

	resultOrders := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if o, ok := ordersMap[id]; ok {
			resultOrders = append(resultOrders, *o)
		}
	}

	return resultOrders, nil
}

func (r *postgresRepository) itemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	query := `
		SELECT id, order_id, name, price_cents, quantity, created_at
		FROM cafe.order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]Item)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Name,
			&item.PriceCents,
			&item.Quantity,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateStatus issues a conditional single-row update and asks for the
// post-update row back. Zero rows returned maps to ErrWriteDropped so the
// caller can tell a blocked write apart from a transport failure.
func (r *postgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error) {
	query := `
		UPDATE cafe.orders
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, display_number, session_id, status, total_cents, created_at, updated_at
	`

	var o Order
	err := r.db.QueryRow(ctx, query,
		string(newStatus),
		time.Now().UTC(),
		orderID,
	).Scan(
		&o.ID,
		&o.DisplayNumber,
		&o.SessionID,
		&o.Status,
		&o.TotalCents,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: status update affected zero rows")
			return nil, ErrWriteDropped
		}
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: failed to update order status")
		return nil, fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}

	items, err := r.itemsForOrders(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	o.Items = items[orderID]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}

	return &o, nil
}

func (r *postgresRepository) InsertFeedback(ctx context.Context, fb *Feedback) error {
	if fb.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate feedback ID: %w", err)
		}
		fb.ID = genID
	}
	fb.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO cafe.feedback (id, order_id, session_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		fb.ID,
		fb.OrderID,
		fb.SessionID,
		fb.Rating,
		fb.Comment,
		fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert feedback for order %s: %w", fb.OrderID, err)
	}

	return nil
}

func (r *postgresRepository) StatusStats(ctx context.Context) ([]StatusStat, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM cafe.orders
		GROUP BY status
		ORDER BY status
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query status stats: %w", err)
	}
	defer rows.Close()

	stats := make([]StatusStat, 0)
	for rows.Next() {
		var st StatusStat
		if err := rows.Scan(&st.Status, &st.Count, &st.TotalCents); err != nil {
			return nil, fmt.Errorf("repository: failed to scan status stat: %w", err)
		}
		stats = append(stats, st)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status stats: %w", err)
	}

	return stats, nil
}
