package models

import "time"

type Batch struct {
	ID            string    `json:"id" db:"id"`
	OrderID       string    `json:"order_id" db:"order_id"`
	OrderNo       string    `json:"order_no" db:"-"` // joined from orders
	UnitsPerCase  int       `json:"units_per_case" db:"units_per_case"`
	BufferPerCase int       `json:"buffer_per_case" db:"buffer_per_case"`
	CaseCount     int       `json:"case_count" db:"case_count"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type CreateBatchRequest struct {
	OrderID       string `json:"order_id"`
	OrderNo       string `json:"order_no"`
	ProductName   string `json:"product_name"`
	CaseCount     int    `json:"case_count"`
	UnitsPerCase  int    `json:"units_per_case"`
	BufferPerCase int    `json:"buffer_per_case"`
}
