package fileinput

import (
	"strings"

	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// Reserved header columns.
const (
	idColumn      = ":ID"
	labelColumn   = ":LABEL"
	startIDColumn = ":START_ID"
	endIDColumn   = ":END_ID"
)

// arraySeparator splits array cells and multi-label cells.
const arraySeparator = ";"

// column is one parsed data column of a header.
type column struct {
	index int
	key   string
	typ   values.ValueType
}

// nodeHeader is the parsed header of a node file.
type nodeHeader struct {
	idIndex    int
	labelIndex int // -1 when the file has no :LABEL column
	columns    []column
}

// relationshipHeader is the parsed header of a relationship file.
type relationshipHeader struct {
	startIndex int
	endIndex   int
	columns    []column
}

// parseDataColumn splits "name:valueType" and resolves the type token.
func parseDataColumn(index int, field string) (column, error) {
	sep := strings.LastIndex(field, ":")
	if sep <= 0 || sep == len(field)-1 {
		return column{}, apperrors.Newf(apperrors.CodeInvalidHeader,
			"column %q is not of the form name:valueType", field)
	}
	typ, err := values.ParseValueType(field[sep+1:])
	if err != nil {
		return column{}, err
	}
	return column{index: index, key: field[:sep], typ: typ}, nil
}

// parseNodeHeader validates a node file header.
// The first column must be :ID; :LABEL may appear anywhere after it.
func parseNodeHeader(fields []string) (*nodeHeader, error) {
	if len(fields) == 0 || fields[0] != idColumn {
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
			"node header must start with %s", idColumn)
	}
	h := &nodeHeader{idIndex: 0, labelIndex: -1}
	for i := 1; i < len(fields); i++ {
		if fields[i] == labelColumn {
			if h.labelIndex >= 0 {
				return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
					"duplicate %s column", labelColumn)
			}
			h.labelIndex = i
			continue
		}
		col, err := parseDataColumn(i, fields[i])
		if err != nil {
			return nil, err
		}
		h.columns = append(h.columns, col)
	}
	return h, nil
}

// parseRelationshipHeader validates a relationship file header.
// The first two columns must be :START_ID and :END_ID.
func parseRelationshipHeader(fields []string) (*relationshipHeader, error) {
	if len(fields) < 2 || fields[0] != startIDColumn || fields[1] != endIDColumn {
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
			"relationship header must start with %s,%s", startIDColumn, endIDColumn)
	}
	h := &relationshipHeader{startIndex: 0, endIndex: 1}
	for i := 2; i < len(fields); i++ {
		col, err := parseDataColumn(i, fields[i])
		if err != nil {
			return nil, err
		}
		h.columns = append(h.columns, col)
	}
	return h, nil
}

// parseGraphPropertyHeader validates a graph property file header:
// a single name:valueType column.
func parseGraphPropertyHeader(fields []string) (*column, error) {
	if len(fields) != 1 {
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader,
			"graph property header must hold exactly one column, got %d", len(fields))
	}
	col, err := parseDataColumn(0, fields[0])
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// parseCell converts a raw CSV cell into a typed value.
// Empty cells yield nil, which column builders replace with the default.
func parseCell(raw string, typ values.ValueType) (values.Value, error) {
	if raw == "" {
		return nil, nil
	}
	switch typ {
	case values.TypeLong:
		n, err := parseLong(raw)
		if err != nil {
			return nil, err
		}
		return values.LongValue(n), nil
	case values.TypeDouble:
		f, err := parseDouble(raw)
		if err != nil {
			return nil, err
		}
		return values.DoubleValue(f), nil
	case values.TypeString:
		return values.StringValue(raw), nil
	case values.TypeBoolean:
		b, err := parseBool(raw)
		if err != nil {
			return nil, err
		}
		return values.BooleanValue(b), nil
	case values.TypeLongArray:
		parts := splitArray(raw)
		out := make(values.LongArrayValue, len(parts))
		for i, p := range parts {
			n, err := parseLong(p)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case values.TypeDoubleArray:
		parts := splitArray(raw)
		out := make(values.DoubleArrayValue, len(parts))
		for i, p := range parts {
			f, err := parseDouble(p)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case values.TypeFloatArray:
		parts := splitArray(raw)
		out := make(values.FloatArrayValue, len(parts))
		for i, p := range parts {
			f, err := parseDouble(p)
			if err != nil {
				return nil, err
			}
			out[i] = float32(f)
		}
		return out, nil
	case values.TypeStringArray:
		return values.StringArrayValue(splitArray(raw)), nil
	case values.TypeBooleanArray:
		parts := splitArray(raw)
		out := make(values.BooleanArrayValue, len(parts))
		for i, p := range parts {
			b, err := parseBool(p)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidValueType,
			"cannot parse cell of type %s", typ)
	}
}

func splitArray(raw string) []string {
	return strings.Split(raw, arraySeparator)
}
