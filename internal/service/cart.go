package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/cart"
	"github.com/flicky/premium-store/internal/catalog"
	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	c, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return toCartResponse(c), nil
}

// AddItem snapshots name, price and image from the catalog. Adding a product
// already in the cart bumps its quantity and keeps the original duration.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error) {
	product, err := s.productRepo.GetBySlug(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !catalog.Orderable(product) {
		return nil, invalid(req.ProductID, ErrProductUnavailable)
	}
	if !catalog.AllowsMonths(product, req.Months) {
		return nil, invalid(req.ProductID, ErrInvalidDuration)
	}

	c, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	for _, it := range c.Items() {
		if it.ProductID == product.Slug && it.Quantity >= cart.MaxQuantity {
			return nil, invalid(product.Slug, ErrInvalidQuantity)
		}
	}

	c.AddItem(cart.Item{
		ProductID: product.Slug,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Months:    req.Months,
	})
	if err := s.cartRepo.Save(ctx, userID, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return toCartResponse(c), nil
}

// UpdateItem changes quantity and/or duration; quantity 0 removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, productID string, req dto.UpdateCartItemRequest) (*dto.CartResponse, error) {
	c, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if req.Months != nil {
		product, err := s.productRepo.GetBySlug(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		if !catalog.AllowsMonths(product, *req.Months) {
			return nil, invalid(productID, ErrInvalidDuration)
		}
		if !c.UpdateMonths(productID, *req.Months) {
			return nil, ErrCartItemNotFound
		}
	}
	if req.Quantity != nil {
		if *req.Quantity > cart.MaxQuantity {
			return nil, invalid(productID, ErrInvalidQuantity)
		}
		if !c.UpdateQuantity(productID, *req.Quantity) {
			return nil, ErrCartItemNotFound
		}
	}

	if err := s.cartRepo.Save(ctx, userID, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return toCartResponse(c), nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*dto.CartResponse, error) {
	c, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if !c.RemoveItem(productID) {
		return nil, ErrCartItemNotFound
	}
	if err := s.cartRepo.Save(ctx, userID, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return toCartResponse(c), nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func toCartResponse(c *cart.Cart) *dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(c.Items()))
	for _, it := range c.Items() {
		items = append(items, dto.CartItemResponse{
			ID: it.ProductID, Name: it.Name, Price: it.Price, Image: it.Image,
			Months: it.Months, Quantity: it.Quantity, Subtotal: it.Subtotal(),
		})
	}
	return &dto.CartResponse{Items: items, TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()}
}
