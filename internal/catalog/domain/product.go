package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	Description string
	Thumbnail   string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
