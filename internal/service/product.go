package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/premium-store/internal/catalog"
	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	log         *slog.Logger
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, log *slog.Logger) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient, log: log}
}

func productCacheKey(slug string) string { return "product:" + slug }

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product := &model.Product{
		Slug:            req.Slug,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		AvailableMonths: req.AvailableMonths,
		Stock:           req.Stock,
		IsActive:        true,
		IsPopular:       req.IsPopular,
		RequiresAge:     req.RequiresAge,
		Category:        req.Category,
		Features:        req.Features,
		Image:           req.Image,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if !product.Price.IsPositive() {
		return nil, invalid("price", errors.New("must be positive"))
	}
	if err := catalog.CheckDurations(product); err != nil {
		return nil, invalid("availableMonths", err)
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetBySlug serves the public product page, including its pricing table.
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(slug)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}

	resp := ToProductResponse(product)
	resp.Pricing = catalog.PricingTable(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

// List returns active products only unless includeInactive is set for admins.
func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest, includeInactive bool) (*dto.ProductListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		Search:      req.Search,
		Category:    req.Category,
		PopularOnly: req.Popular,
		ActiveOnly:  !includeInactive,
		Sort:        req.Sort,
		Order:       req.Order,
		Limit:       req.Limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// Update applies only the fields present in the request.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, invalid("price", errors.New("must be positive"))
		}
		product.Price = *req.Price
	}
	if req.AvailableMonths != nil {
		product.AvailableMonths = req.AvailableMonths
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.IsPopular != nil {
		product.IsPopular = *req.IsPopular
	}
	if req.RequiresAge != nil {
		product.RequiresAge = *req.RequiresAge
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Features != nil {
		product.Features = req.Features
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if err := catalog.CheckDurations(product); err != nil {
		return nil, invalid("availableMonths", err)
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.Invalidate(ctx, product.Slug)
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductInUse):
			return ErrProductInUse
		case errors.Is(err, pgx.ErrNoRows):
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.Invalidate(ctx, product.Slug)
	return nil
}

// SyncCatalog inserts seed products whose slug is not in the database yet.
// Rows that already exist keep their admin-edited values.
func (s *ProductService) SyncCatalog(ctx context.Context, seed []model.Product) (int, error) {
	inserted := 0
	for i := range seed {
		ok, err := s.productRepo.InsertIfMissing(ctx, &seed[i])
		if err != nil {
			return inserted, fmt.Errorf("sync product %s: %w", seed[i].Slug, err)
		}
		if ok {
			inserted++
		}
	}
	if s.log != nil {
		s.log.Info("catalog synced", "seed", len(seed), "inserted", inserted)
	}
	return inserted, nil
}

// Invalidate drops the cached product pages for the given slugs.
func (s *ProductService) Invalidate(ctx context.Context, slugs ...string) {
	if s.redisClient == nil || len(slugs) == 0 {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, productCacheKey(slug))
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil && s.log != nil {
		s.log.Warn("invalidate product cache", "slugs", slugs, "error", err)
	}
}

func ToProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		AvailableMonths: p.AvailableMonths,
		Stock:           p.Stock,
		IsActive:        p.IsActive,
		IsPopular:       p.IsPopular,
		RequiresAge:     p.RequiresAge,
		Category:        p.Category,
		Features:        p.Features,
		Image:           p.Image,
		Orderable:       catalog.Orderable(p),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
