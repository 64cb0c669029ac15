package catalogue

import (
	"fmt"
	"os"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileProduct struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Price    float64 `yaml:"price"`
	Bonus    bool    `yaml:"bonus"`
}

type fileCatalogue struct {
	Products []fileProduct `yaml:"products"`
}

// LoadFile reads a YAML catalogue:
//
//	products:
//	  - key: BAP WIT
//	    name: Bananas White (Fairtrade)
//	    category: Fruit
//	    price: 1.79
//	    bonus: false
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalogue document.
func Parse(data []byte) (*Catalogue, error) {
	var doc fileCatalogue
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	products := make([]model.Product, 0, len(doc.Products))
	for i, p := range doc.Products {
		if p.Key == "" {
			return nil, fmt.Errorf("catalogue entry %d has no key", i)
		}
		products = append(products, model.Product{
			Key:           p.Key,
			Name:          p.Name,
			Category:      p.Category,
			Price:         decimal.NewFromFloat(p.Price),
			IsPromotional: p.Bonus,
		})
	}

	return New(products)
}
