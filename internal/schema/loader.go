package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/rowkey"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// Table is a fully constructed table definition, read-only for the life of a job.
type Table struct {
	Name         string
	Catalog      *ColumnCatalog
	RowKey       *rowkey.CompositeKey
	ReconColumns []types.ReconColumnDef
}

// LoadFile reads a YAML (or JSON) table definition from path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("failed to read table definition %s", path), err)
	}
	return Parse(data)
}

// Parse decodes a table definition document.
func Parse(data []byte) (*Table, error) {
	var def types.TableDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema, "failed to parse table definition", err)
	}
	return FromDef(def)
}

// FromDef validates def and builds the catalog and row key.
func FromDef(def types.TableDef) (*Table, error) {
	if def.Name == "" {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema, "table name is required", nil)
	}
	if !ValidateIdentifier(def.Name) {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("table name %q is not a valid identifier", def.Name), nil)
	}
	if len(def.Columns) == 0 {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("table %s defines no columns", def.Name), nil)
	}

	cols := make([]*Column, 0, len(def.Columns))
	for _, cd := range def.Columns {
		c, err := NewColumn(cd)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	catalog, err := NewColumnCatalog(cols...)
	if err != nil {
		return nil, err
	}

	key, err := rowkey.FromDef(def.RowKey)
	if err != nil {
		return nil, err
	}

	for _, rc := range def.Recon {
		if _, ok := catalog.ByTarget(rc.Column); !ok {
			return nil, merrors.NewSchemaError(merrors.CodeColumnNotFound,
				fmt.Sprintf("recon column %q is not a target column of %s", rc.Column, def.Name),
				types.ErrColumnNotFound)
		}
	}

	return &Table{
		Name:         def.Name,
		Catalog:      catalog,
		RowKey:       key,
		ReconColumns: def.Recon,
	}, nil
}
