package schema

import (
	"github.com/graph-import/pkg/values"
)

// PropertyState tells whether a property survives into persistent storage.
type PropertyState int

const (
	// StatePersistent properties are part of the durable graph.
	StatePersistent PropertyState = iota
	// StateTransient properties exist only for the lifetime of the store.
	StateTransient
)

// String returns the schema file token for the state.
func (s PropertyState) String() string {
	if s == StateTransient {
		return "TRANSIENT"
	}
	return "PERSISTENT"
}

// PropertySchema describes a single property of an element kind.
type PropertySchema struct {
	Key          string
	Type         values.ValueType
	DefaultValue values.Value
	State        PropertyState
	Aggregation  Aggregation
}

// NewPropertySchema creates a persistent property schema with the type's
// default value and no aggregation.
func NewPropertySchema(key string, valueType values.ValueType) PropertySchema {
	return PropertySchema{
		Key:          key,
		Type:         valueType,
		DefaultValue: valueType.DefaultValue(),
		State:        StatePersistent,
	}
}

// WithDefault returns a copy with the given default value.
func (p PropertySchema) WithDefault(v values.Value) PropertySchema {
	p.DefaultValue = v
	return p
}

// WithAggregation returns a copy with the given aggregation.
func (p PropertySchema) WithAggregation(a Aggregation) PropertySchema {
	p.Aggregation = a
	return p
}

// WithState returns a copy with the given state.
func (p PropertySchema) WithState(s PropertyState) PropertySchema {
	p.State = s
	return p
}

// Compatible reports whether a value of the given type can be stored in a
// column declared with this schema, either directly or by widening.
func (p PropertySchema) Compatible(t values.ValueType) bool {
	if p.Type == t {
		return true
	}
	switch p.Type {
	case values.TypeDouble:
		return t == values.TypeLong
	case values.TypeDoubleArray:
		return t == values.TypeLongArray || t == values.TypeFloatArray
	case values.TypeFloatArray:
		return t == values.TypeDoubleArray
	}
	return false
}
