package fileinput

import (
	"os"
	"path/filepath"

	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// Schema implements FileInput. Sidecar files are optional; a missing file
// leaves that side of the schema nil, which puts the engine in lazy mode.
//
// node_schema.csv rows:         label,propertyKey,valueType
// relationship_schema.csv rows: type,direction,propertyKey,valueType,aggregation
// graph_property_schema.csv:    propertyKey,valueType
// A row with an empty propertyKey declares the label or type alone.
func (in *CSVInput) Schema() (*InputSchema, error) {
	out := &InputSchema{}

	nodeRows, err := in.readSchemaFile(nodeSchemaFile)
	if err != nil {
		return nil, err
	}
	if nodeRows != nil {
		nodeSchema := schema.NewNodeSchema()
		for _, row := range nodeRows {
			if len(row) < 2 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"%s: rows need at least label,propertyKey", nodeSchemaFile)
			}
			label := schema.NodeLabel(row[0])
			nodeSchema.AddLabel(label)
			if row[1] == "" {
				continue
			}
			if len(row) < 3 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"%s: property rows need label,propertyKey,valueType", nodeSchemaFile)
			}
			typ, err := values.ParseValueType(row[2])
			if err != nil {
				return nil, err
			}
			if err := nodeSchema.AddProperty(label, schema.NewPropertySchema(row[1], typ)); err != nil {
				return nil, err
			}
		}
		out.Nodes = nodeSchema
	}

	relRows, err := in.readSchemaFile(relSchemaFile)
	if err != nil {
		return nil, err
	}
	if relRows != nil {
		relSchema := schema.NewRelationshipSchema()
		for _, row := range relRows {
			if len(row) < 3 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"%s: rows need type,direction,propertyKey", relSchemaFile)
			}
			relType := schema.RelationshipType(row[0])
			direction, err := parseDirection(row[1])
			if err != nil {
				return nil, err
			}
			if err := relSchema.AddType(relType, direction); err != nil {
				return nil, err
			}
			if row[2] == "" {
				continue
			}
			if len(row) < 4 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"%s: property rows need type,direction,propertyKey,valueType", relSchemaFile)
			}
			typ, err := values.ParseValueType(row[3])
			if err != nil {
				return nil, err
			}
			prop := schema.NewPropertySchema(row[2], typ)
			if len(row) > 4 {
				agg, err := schema.ParseAggregation(row[4])
				if err != nil {
					return nil, err
				}
				prop = prop.WithAggregation(agg)
			}
			if err := relSchema.AddProperty(relType, prop); err != nil {
				return nil, err
			}
		}
		out.Relationships = relSchema
	}

	propRows, err := in.readSchemaFile(graphPropSchemaFile)
	if err != nil {
		return nil, err
	}
	if propRows != nil {
		out.GraphProperties = make(map[string]values.ValueType, len(propRows))
		for _, row := range propRows {
			if len(row) < 2 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"%s: rows need propertyKey,valueType", graphPropSchemaFile)
			}
			typ, err := values.ParseValueType(row[1])
			if err != nil {
				return nil, err
			}
			out.GraphProperties[row[0]] = typ
		}
	}

	return out, nil
}

// readSchemaFile returns all rows of a sidecar file, or nil when absent.
func (in *CSVInput) readSchemaFile(name string) ([][]string, error) {
	path := filepath.Join(in.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	c, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var rows [][]string
	for {
		fields, err := c.read()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return rows, nil
		}
		rows = append(rows, fields)
	}
}

func parseDirection(token string) (schema.Direction, error) {
	switch token {
	case "DIRECTED", "directed":
		return schema.Directed, nil
	case "UNDIRECTED", "undirected":
		return schema.Undirected, nil
	default:
		return schema.Directed, apperrors.Newf(apperrors.CodeInvalidHeader,
			"unrecognized direction %q", token)
	}
}
