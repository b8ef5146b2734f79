package model

import (
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Catalog holds the configured models by name.
type Catalog struct {
	order  []*Model
	byName map[string]*Model
}

// NewCatalog indexes models by name. Names must be unique.
func NewCatalog(models ...*Model) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Model, len(models))}
	for _, m := range models {
		if _, ok := c.byName[m.Name()]; ok {
			return nil, fmt.Errorf("duplicate model: %s", m.Name())
		}
		c.byName[m.Name()] = m
		c.order = append(c.order, m)
	}
	return c, nil
}

// Get returns the model named name.
func (c *Catalog) Get(name string) (*Model, error) {
	m, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrModelNotFound, name)
	}
	return m, nil
}

// All returns the models in declaration order.
func (c *Catalog) All() []*Model { return c.order }
