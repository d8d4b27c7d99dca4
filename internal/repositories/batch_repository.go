package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qrtrace-backend/internal/models"
)

type BatchRepository struct {
	DB *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{DB: db}
}

// CreateOrder inserts an order; order_no is unique
func (r *BatchRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, order_no, product_name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return r.DB.QueryRow(ctx, query, order.ID, order.OrderNo, order.ProductName).Scan(&order.CreatedAt)
}

// GetOrder retrieves an order by ID
func (r *BatchRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT id, order_no, product_name, created_at FROM orders WHERE id = $1`

	order := &models.Order{}
	err := r.DB.QueryRow(ctx, query, id).Scan(&order.ID, &order.OrderNo, &order.ProductName, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderByNo retrieves an order by its order number
func (r *BatchRepository) GetOrderByNo(ctx context.Context, orderNo string) (*models.Order, error) {
	query := `SELECT id, order_no, product_name, created_at FROM orders WHERE order_no = $1`

	order := &models.Order{}
	err := r.DB.QueryRow(ctx, query, orderNo).Scan(&order.ID, &order.OrderNo, &order.ProductName, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CreateBatch inserts a batch header
func (r *BatchRepository) CreateBatch(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO batches (id, order_id, units_per_case, buffer_per_case, case_count, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.DB.QueryRow(ctx, query,
		batch.ID, batch.OrderID, batch.UnitsPerCase, batch.BufferPerCase,
		batch.CaseCount, batch.Status,
	).Scan(&batch.CreatedAt)
}

// ListBatches retrieves all batches with order numbers, newest first
func (r *BatchRepository) ListBatches(ctx context.Context) ([]models.Batch, error) {
	query := `
		SELECT b.id, b.order_id, o.order_no, b.units_per_case, b.buffer_per_case,
		       b.case_count, b.status, b.created_at
		FROM batches b
		JOIN orders o ON b.order_id = o.id
		ORDER BY b.created_at DESC
	`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		var batch models.Batch
		err := rows.Scan(
			&batch.ID, &batch.OrderID, &batch.OrderNo, &batch.UnitsPerCase,
			&batch.BufferPerCase, &batch.CaseCount, &batch.Status, &batch.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	return batches, rows.Err()
}
