package graphstore

import (
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
)

// Nodes is the finished node side of a graph store.
type Nodes struct {
	Schema     *schema.NodeSchema
	IdMap      *idmap.IdMap
	Properties map[string]*NodePropertyColumn
}

// Count returns the number of nodes.
func (n *Nodes) Count() int64 {
	if n == nil || n.IdMap == nil {
		return 0
	}
	return n.IdMap.NodeCount()
}

// SingleTypeRelationships is the finished store of one relationship type.
type SingleTypeRelationships struct {
	SchemaEntry       *schema.RelationshipEntry
	Topology          *Topology
	InverseTopology   *Topology
	Properties        map[string]*RelationshipPropertyColumn
	InverseProperties map[string]*RelationshipPropertyColumn
}

// ElementCount returns the number of stored edges in the forward topology.
func (r *SingleTypeRelationships) ElementCount() int64 {
	if r == nil {
		return 0
	}
	return r.Topology.ElementCount()
}

// GraphStore is the immutable, query-ready result of an import.
type GraphStore struct {
	NodeSchema         *schema.NodeSchema
	RelationshipSchema *schema.RelationshipSchema
	Nodes              *Nodes
	Relationships      map[schema.RelationshipType]*SingleTypeRelationships
	GraphProperties    map[string]*GraphPropertyValues
}

// NodeCount returns the number of nodes.
func (s *GraphStore) NodeCount() int64 {
	return s.Nodes.Count()
}

// RelationshipCount returns the total forward edge count across all types.
func (s *GraphStore) RelationshipCount() int64 {
	var total int64
	for _, rels := range s.Relationships {
		total += rels.ElementCount()
	}
	return total
}

// RelationshipTypes returns every stored relationship type.
func (s *GraphStore) RelationshipTypes() []schema.RelationshipType {
	out := make([]schema.RelationshipType, 0, len(s.Relationships))
	for t := range s.Relationships {
		out = append(out, t)
	}
	return out
}
