package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dwikikusuma/cartline/internal/catalog/app"
	"github.com/dwikikusuma/cartline/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	thumbnail   TEXT NOT NULL DEFAULT '',
	tags        TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	id := uuid.New()
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return domain.Product{}, app.ErrInvalidInput
		}
		id = parsed
	}

	query := `
		INSERT INTO products (id, title, price, description, thumbnail, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, title, price, description, thumbnail, tags, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query,
		id, p.Title, p.Price.String(), p.Description, p.Thumbnail, pq.Array(p.Tags),
	)
	return scanProduct(row)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	prodID, err := uuid.Parse(id)
	if err != nil {
		// a malformed id can never name a stored product
		return domain.Product{}, app.ErrNotFound
	}

	query := `
		SELECT id, title, price, description, thumbnail, tags, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, prodID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *ProductRepo) List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	var cur uuid.NullUUID
	if strings.TrimSpace(cursor) != "" {
		uid, err := uuid.Parse(strings.TrimSpace(cursor))
		if err != nil {
			return nil, "", app.ErrInvalidInput
		}
		cur = uuid.NullUUID{UUID: uid, Valid: true}
	}

	stmt := `
		SELECT id, title, price, description, thumbnail, tags, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		  AND ($2::uuid IS NULL OR id > $2::uuid)
		ORDER BY id
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, stmt, strings.TrimSpace(query), cur, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, limit)
	var nextCursor string

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, p)
		nextCursor = p.ID
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if len(out) < limit {
		nextCursor = ""
	}

	return out, nextCursor, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p     domain.Product
		id    uuid.UUID
		price string
		tags  pq.StringArray
	)
	if err := s.Scan(&id, &p.Title, &price, &p.Description, &p.Thumbnail, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = id.String()
	p.Price = amount
	p.Tags = []string(tags)
	return p, nil
}
