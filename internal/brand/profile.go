package brand

import (
	"fmt"

	"attachment-ingestor/internal/table"
)

// ExampleBrand is the profile for example_brand@example.com deliveries
const ExampleBrand = "ExampleBrand"

// StandardProfile loads an attachment, normalizes it and runs optional brand hooks around
// the normalization step
type StandardProfile struct {
	BrandName  string
	Loader     *table.Loader
	Normalizer *table.Normalizer

	// Pre runs on the loaded table before labels are normalized
	Pre func(*table.Table) (*table.Table, error)
	// Post runs on the normalized table
	Post func(*table.Normalized) (*table.Normalized, error)
}

func (p *StandardProfile) Name() string { return p.BrandName }

func (p *StandardProfile) Parse(data []byte) (*table.Normalized, error) {
	t, err := p.Loader.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p.BrandName, ErrUnparsableAttachment, err)
	}

	if p.Pre != nil {
		if t, err = p.Pre(t); err != nil {
			return nil, fmt.Errorf("%s pre-processing: %w", p.BrandName, err)
		}
	}

	n := p.Normalizer.Normalize(t)

	if p.Post != nil {
		if n, err = p.Post(n); err != nil {
			return nil, fmt.Errorf("%s post-processing: %w", p.BrandName, err)
		}
	}
	return n, nil
}

// Default returns the registry of every brand the service knows how to parse
func Default(loader *table.Loader, normalizer *table.Normalizer) *Registry {
	r, err := NewRegistry(
		&StandardProfile{BrandName: ExampleBrand, Loader: loader, Normalizer: normalizer},
	)
	if err != nil {
		panic(err)
	}
	return r
}
