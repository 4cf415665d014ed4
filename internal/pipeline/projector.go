// Package pipeline drives a migration job: it reads row histories, merges them,
// projects the visible cells onto target columns, writes the target rows and
// accumulates reconciliation counters.
package pipeline

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

// Projector maps merged rows onto the flat target schema. Static columns land in
// their target column. All qualifiers of a dynamic column are collected into one
// JSON object keyed by dynamic component. Columns with no visible value take
// their default when they have one.
type Projector struct {
	table  *schema.Table
	engine *merge.Engine
	codec  *codec.Codec
}

// NewProjector creates a projector for table.
func NewProjector(table *schema.Table, engine *merge.Engine, c *codec.Codec) *Projector {
	return &Projector{table: table, engine: engine, codec: c}
}

// Project returns the target row of res keyed by target column name.
func (p *Projector) Project(res *merge.ProcessMutationResult) (map[string]string, error) {
	decoded, err := p.engine.Decode(res, p.codec)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	dynamic := make(map[string]map[string]interface{})
	for family, quals := range decoded {
		for qualifier, value := range quals {
			col, err := p.table.Catalog.Resolve(family, qualifier)
			if err != nil {
				return nil, err
			}
			if !col.IsDynamic() {
				out[col.TargetName()] = value
				continue
			}
			component, err := col.DynamicComponent(qualifier)
			if err != nil {
				return nil, err
			}
			obj := dynamic[col.TargetName()]
			if obj == nil {
				obj = make(map[string]interface{})
				dynamic[col.TargetName()] = obj
			}
			obj[component] = dynamicValue(col, value)
		}
	}

	for target, obj := range dynamic {
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encode dynamic column %s: %w", target, err)
		}
		out[target] = string(data)
	}

	for _, col := range p.table.Catalog.All() {
		if _, ok := out[col.TargetName()]; ok {
			continue
		}
		if def, ok := col.DefaultValue(); ok {
			out[col.TargetName()] = def
		}
	}
	return out, nil
}

// dynamicValue embeds JSON payloads as documents and everything else as text.
func dynamicValue(col *schema.Column, value string) interface{} {
	if col.IsJSONLike() && json.Valid([]byte(value)) {
		return json.RawMessage(value)
	}
	return value
}
