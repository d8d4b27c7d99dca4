package models

import "time"

type Order struct {
	ID          string    `json:"id" db:"id"`
	OrderNo     string    `json:"order_no" db:"order_no"`
	ProductName string    `json:"product_name" db:"product_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
