package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwikikusuma/cartline/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

// CreateProduct stores a new product. An empty id lets the repository assign one.
func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)

	if p.Title == "" || !p.Price.GreaterThan(decimal.Zero) {
		return domain.Product{}, ErrInvalidInput
	}

	product, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, query, limit, cursor)
}

// Seed creates every product whose id is not known yet and returns how many
// were created. Products without an id are always created.
func (s *Service) Seed(ctx context.Context, products []domain.Product) (int, error) {
	created := 0
	for _, p := range products {
		if id := strings.TrimSpace(p.ID); id != "" {
			_, err := s.repo.Get(ctx, id)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return created, err
			}
		}
		if _, err := s.CreateProduct(ctx, p); err != nil {
			return created, fmt.Errorf("seed product %q: %w", p.Title, err)
		}
		created++
	}
	return created, nil
}
