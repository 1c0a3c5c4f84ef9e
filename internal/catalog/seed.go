package catalog

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/flicky/premium-store/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

type seedProduct struct {
	Slug            string   `yaml:"slug"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Price           string   `yaml:"price"`
	AvailableMonths []int    `yaml:"available_months"`
	Stock           int      `yaml:"stock"`
	Active          *bool    `yaml:"active"`
	Popular         bool     `yaml:"popular"`
	RequiresAge     bool     `yaml:"requires_age"`
	Category        string   `yaml:"category"`
	Features        []string `yaml:"features"`
	Image           string   `yaml:"image"`
}

// Seed returns the built-in catalog.
func Seed() ([]model.Product, error) {
	return ParseSeed(seedYAML)
}

func ParseSeed(data []byte) ([]model.Product, error) {
	var doc struct {
		Products []seedProduct `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Products))
	products := make([]model.Product, 0, len(doc.Products))
	for _, sp := range doc.Products {
		if sp.Slug == "" {
			return nil, fmt.Errorf("catalog entry %q has no slug", sp.Name)
		}
		if seen[sp.Slug] {
			return nil, fmt.Errorf("duplicate catalog slug %q", sp.Slug)
		}
		seen[sp.Slug] = true

		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog %s price: %w", sp.Slug, err)
		}
		active := true
		if sp.Active != nil {
			active = *sp.Active
		}
		p := model.Product{
			Slug:            sp.Slug,
			Name:            sp.Name,
			Description:     sp.Description,
			Price:           price,
			AvailableMonths: sp.AvailableMonths,
			Stock:           sp.Stock,
			IsActive:        active,
			IsPopular:       sp.Popular,
			RequiresAge:     sp.RequiresAge,
			Category:        sp.Category,
			Features:        sp.Features,
			Image:           sp.Image,
		}
		if err := CheckDurations(&p); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", sp.Slug, err)
		}
		products = append(products, p)
	}
	return products, nil
}
