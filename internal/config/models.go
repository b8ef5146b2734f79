package config

import (
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
)

// BuildModels turns model declarations into descriptors. The engine prefix is
// applied to every index name.
func (c *Config) BuildModels() ([]*model.Model, error) {
	out := make([]*model.Model, 0, len(c.Models))
	for _, mc := range c.Models {
		fields := make([]field.Field, 0, len(mc.Fields))
		for _, fc := range mc.Fields {
			f, err := field.New(fc.Name, field.Type(fc.Type), fc.Sortable)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", mc.Name, err)
			}
			fields = append(fields, f)
		}
		m, err := model.New(mc.Name, model.Options{
			Table:            mc.Table,
			Key:              mc.Key,
			Index:            mc.Index,
			Prefix:           c.Engine.Prefix,
			Searchable:       mc.Searchable,
			Fields:           fields,
			SoftDeleteColumn: mc.SoftDeleteColumn,
			CreatedAtColumn:  mc.CreatedAtColumn,
			PerPage:          mc.PerPage,
			SearchableIf:     mc.SearchableIf,
			ReindexOn:        mc.ReindexOn,
		})
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", mc.Name, err)
		}
		out = append(out, m)
	}
	return out, nil
}
