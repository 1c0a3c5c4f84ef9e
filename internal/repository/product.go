package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/premium-store/internal/model"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInUse      = errors.New("product is referenced by orders")
)

type ProductFilter struct {
	Search      string
	Category    string
	PopularOnly bool
	ActiveOnly  bool
	Sort        string
	Order       string
	Limit       int
	Offset      int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	InsertIfMissing(ctx context.Context, product *model.Product) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, slug, name, description, price, available_months, stock, is_active,
	is_popular, requires_age, category, features, image, created_at, updated_at`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.AvailableMonths,
		&p.Stock, &p.IsActive, &p.IsPopular, &p.RequiresAge, &p.Category, &p.Features,
		&p.Image, &p.CreatedAt, &p.UpdatedAt)
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, slug, name, description, price, available_months, stock, is_active,
			      is_popular, requires_age, category, features, image, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, productArgs(product)...).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// InsertIfMissing adds a catalog entry unless its slug already exists, so
// admin edits to stock and price survive restarts.
func (r *pgProductRepo) InsertIfMissing(ctx context.Context, product *model.Product) (bool, error) {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, slug, name, description, price, available_months, stock, is_active,
			      is_popular, requires_age, category, features, image, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
			  ON CONFLICT (slug) DO NOTHING`
	ct, err := r.pool.Exec(ctx, query, productArgs(product)...)
	if err != nil {
		return false, fmt.Errorf("seed product %s: %w", product.Slug, err)
	}
	return ct.RowsAffected() == 1, nil
}

func productArgs(p *model.Product) []any {
	months := p.AvailableMonths
	if months == nil {
		months = []int{}
	}
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return []any{p.ID, p.Slug, p.Name, p.Description, p.Price, months, p.Stock, p.IsActive,
		p.IsPopular, p.RequiresAge, p.Category, features, p.Image}
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *pgProductRepo) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *pgProductRepo) getOne(ctx context.Context, query string, arg any) (*model.Product, error) {
	p := &model.Product{}
	if err := scanProduct(r.pool.QueryRow(ctx, query, arg), p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true, "stock": true}
	if !allowedSorts[f.Sort] {
		f.Sort = "created_at"
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}

	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		AND ($2 = '' OR category = $2)
		AND (NOT $3 OR is_popular)
		AND (NOT $4 OR is_active)`
	args := []any{f.Search, f.Category, f.PopularOnly, f.ActiveOnly}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT $5 OFFSET $6`,
		productColumns, where, f.Sort, f.Order)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET slug=$2, name=$3, description=$4, price=$5, available_months=$6, stock=$7,
			      is_active=$8, is_popular=$9, requires_age=$10, category=$11, features=$12, image=$13, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, productArgs(product)...).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func reserveStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w for product %s", ErrInsufficientStock, productID)
	}
	return nil
}

func releaseStock(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
			it.ProductID, it.Quantity,
		); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
	}
	return nil
}
