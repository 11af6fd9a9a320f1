// Package brand maps a sender's brand name to the parsing profile for its attachments.
package brand

import (
	"errors"
	"fmt"
	"sort"

	"attachment-ingestor/internal/table"
)

var (
	ErrUnknownBrand         = errors.New("unknown brand")
	ErrUnparsableAttachment = errors.New("unparsable attachment")
	ErrDuplicateBrand       = errors.New("brand already registered")
)

// Profile turns the raw bytes of one attachment into a normalized table
type Profile interface {
	Name() string
	Parse(data []byte) (*table.Normalized, error)
}

// Registry holds one profile per brand name. It is populated at startup and only read after.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry holding the given profiles
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a profile under its name
func (r *Registry) Register(p Profile) error {
	name := p.Name()
	if _, ok := r.profiles[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBrand, name)
	}
	r.profiles[name] = p
	return nil
}

// Lookup returns the profile registered for name
func (r *Registry) Lookup(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names lists registered brands in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse dispatches data to the profile registered for brandName
func (r *Registry) Parse(brandName string, data []byte) (*table.Normalized, error) {
	p, ok := r.Lookup(brandName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBrand, brandName)
	}
	return p.Parse(data)
}
