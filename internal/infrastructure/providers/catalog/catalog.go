// Package catalog holds the immutable model catalogs the cloud provider
// families ship with fixed pricing. The local family enumerates models
// from its backend instead.
package catalog

import (
	"model-manager/internal/domain/model"
)

// Catalog is an immutable, ordered set of model definitions. Cloud
// providers ship a fixed catalog with pricing; the local provider
// enumerates models from its backend instead.
type Catalog struct {
	models []model.ModelInfo
	byName map[string]model.ModelInfo
}

// New builds a catalog preserving definition order.
func New(models ...model.ModelInfo) *Catalog {
	c := &Catalog{
		models: models,
		byName: make(map[string]model.ModelInfo, len(models)),
	}
	for _, m := range models {
		c.byName[m.Name] = m
	}
	return c
}

// List returns a copy of all models in definition order.
func (c *Catalog) List() []model.ModelInfo {
	out := make([]model.ModelInfo, len(c.models))
	copy(out, c.models)
	return out
}

// Get returns the named model definition.
func (c *Catalog) Get(name string) (model.ModelInfo, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// Len returns the number of models in the catalog.
func (c *Catalog) Len() int {
	return len(c.models)
}
