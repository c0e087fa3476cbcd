package domain

import "github.com/shopspring/decimal"

type QuoteLine struct {
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Quote struct {
	Lines         []QuoteLine
	TotalQuantity int
	Total         decimal.Decimal
}

// NewQuote totals lines in order.
func NewQuote(lines []QuoteLine) Quote {
	q := Quote{Lines: lines, Total: decimal.Zero}
	for _, l := range lines {
		q.TotalQuantity += l.Quantity
		q.Total = q.Total.Add(l.LineTotal)
	}
	return q
}

func NewLine(productID, title string, qty int, unit decimal.Decimal) QuoteLine {
	return QuoteLine{
		ProductID: productID,
		Title:     title,
		Quantity:  qty,
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}
