// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"reflect"

	"github.com/taibuivan/orm1go/orm/ormerr"
)

// Catalog is an explicit, session-owned registry of [Mapping]s, constructed
// once at startup. There is no global mapping registry — each [Session]
// owns its own Catalog (or, more commonly, several sessions share one
// process-lifetime Catalog passed in by the caller).
type Catalog struct {
	byType map[reflect.Type]*Mapping
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{byType: map[reflect.Type]*Mapping{}}
}

// Register adds m to the catalog without validating it. Children may be
// registered before or after their parent; call [Catalog.ValidateAll] once
// every mapping in an aggregate tree has been registered.
func (c *Catalog) Register(m *Mapping) {
	c.byType[m.EntityType] = m
}

// GetByType looks up the mapping for entityType, returning
// [ormerr.MappingNotFound] if none is registered.
func (c *Catalog) GetByType(entityType reflect.Type) (*Mapping, error) {
	m, ok := c.byType[entityType]
	if !ok {
		return nil, ormerr.MappingNotFound(entityType.String())
	}
	return m, nil
}

// ValidateAll validates every registered mapping's invariants, including
// cross-mapping child/parental-key arity checks. Call this once after all
// mappings in the catalog have been registered.
func (c *Catalog) ValidateAll() error {
	for _, m := range c.byType {
		if err := m.Validate(c); err != nil {
			return err
		}
	}
	return nil
}
