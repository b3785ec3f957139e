package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// seedFile is the YAML layout read by the seed command.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Image         string  `yaml:"image"`
	Brand         string  `yaml:"brand"`
	Category      string  `yaml:"category"`
	Price         float64 `yaml:"price"`
	CountInStock  int     `yaml:"countInStock"`
	StripePriceID string  `yaml:"stripePriceId"`
	IsActive      bool    `yaml:"isActive"`
}

func seedCmd() *cobra.Command {
	var file, owner string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog products from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			products, err := parseSeed(f)
			if err != nil {
				return err
			}

			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()

			n, err := seedProducts(cmd.Context(), repositories.NewSet(rt.store), products, owner)
			if err != nil {
				return err
			}
			rt.log.Info("seed done", zap.String("file", file), zap.Int("products", n))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "products.yaml", "YAML file with a products list")
	cmd.Flags().StringVar(&owner, "owner", "", "email of the user recorded as creator")
	return cmd
}

func parseSeed(r io.Reader) ([]models.Product, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	out := make([]models.Product, 0, len(sf.Products))
	for i, p := range sf.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: name is required", i)
		}
		if p.Price < 0 || p.CountInStock < 0 {
			return nil, fmt.Errorf("product %q: price and countInStock must not be negative", p.Name)
		}
		out = append(out, models.Product{
			Name:          p.Name,
			Description:   p.Description,
			Image:         p.Image,
			Brand:         p.Brand,
			Category:      p.Category,
			Price:         p.Price,
			CountInStock:  p.CountInStock,
			StripePriceID: p.StripePriceID,
			IsActive:      p.IsActive,
		})
	}
	return out, nil
}

// seedProducts stores products, stamping the owner as creator when given.
func seedProducts(ctx context.Context, repos repositories.Set, products []models.Product, ownerEmail string) (int, error) {
	var creator *models.User
	if ownerEmail != "" {
		u, err := repos.Users.GetByEmail(ctx, ownerEmail)
		if err != nil {
			return 0, fmt.Errorf("look up owner %s: %w", ownerEmail, err)
		}
		creator = u
	}
	for i := range products {
		p := &products[i]
		if creator != nil {
			p.User = creator.ID
			p.CreatedBy = models.Creator{ID: creator.ID, Name: creator.Name, Email: creator.Email}
		}
		if err := repos.Products.Create(ctx, p); err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}
	return len(products), nil
}
