package lineagegraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is the thread-safe lineage graph store: tables, columns, and
// expressions as nodes, connected by directed edges. All mutating methods
// take the write lock; all lookups take the read lock, following the same
// discipline the rest of this codebase uses for shared registries.
type Graph struct {
	mu    sync.RWMutex
	idGen IDGenerator

	nodes     map[string]Node
	kindIndex map[NodeKind][]string

	tableByName map[string]string // lower(table name) -> table id
	columnIndex map[string]string // lower(table)+\x00+lower(column) -> column id

	edges     map[string]*Edge
	edgeDedup map[string]string // dedupKey -> edge id
}

// New returns an empty graph using the given id generator.
func New(idGen IDGenerator) *Graph {
	return &Graph{
		idGen:       idGen,
		nodes:       make(map[string]Node),
		kindIndex:   make(map[NodeKind][]string),
		tableByName: make(map[string]string),
		columnIndex: make(map[string]string),
		edges:       make(map[string]*Edge),
		edgeDedup:   make(map[string]string),
	}
}

// NewDefault returns an empty graph using the default uuid-backed id
// generator.
func NewDefault() *Graph {
	return New(DefaultIDGenerator())
}

func columnKey(table, column string) string {
	return strings.ToLower(table) + "\x00" + strings.ToLower(column)
}

// AddNode registers a node under its own id. If a node with the same id is
// already present, AddNode is a no-op and returns the existing node; a
// second registration under the same id but a different Kind is a
// NodeKindConflict.
func (g *Graph) AddNode(n Node) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNodeLocked(n)
}

func (g *Graph) addNodeLocked(n Node) (Node, error) {
	if existing, ok := g.nodes[n.ID()]; ok {
		if existing.Kind() != n.Kind() {
			return existing, fmt.Errorf("%w: id %q already registered as %s, cannot re-register as %s", ErrNodeKindConflict, n.ID(), existing.Kind(), n.Kind())
		}
		return existing, nil
	}
	g.nodes[n.ID()] = n
	g.kindIndex[n.Kind()] = append(g.kindIndex[n.Kind()], n.ID())

	switch node := n.(type) {
	case *TableNode:
		g.tableByName[strings.ToLower(node.Name)] = node.id
	case *ColumnNode:
		g.columnIndex[columnKey(node.OwnerTableName, node.Name)] = node.id
	}
	return n, nil
}

// EnsureTable returns the existing TableNode registered under name
// (case-insensitive), or creates and registers a new one of the given kind.
func (g *Graph) EnsureTable(name string, schema string, kind TableKind) *TableNode {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.tableByName[strings.ToLower(name)]; ok {
		if t, ok := g.nodes[id].(*TableNode); ok {
			return t
		}
	}
	t := NewTableNode(g.idGen.NewID(tablePrefix), name, kind)
	t.Schema = schema
	g.addNodeLocked(t)
	return t
}

// EnsureColumn returns the existing ColumnNode for (tableName, columnName)
// (case-insensitive), or creates and registers a new one. When a TableNode
// is registered under tableName, the new column's id is appended to its
// Columns list.
func (g *Graph) EnsureColumn(tableName, columnName string) *ColumnNode {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := columnKey(tableName, columnName)
	if id, ok := g.columnIndex[key]; ok {
		if c, ok := g.nodes[id].(*ColumnNode); ok {
			return c
		}
	}
	c := NewColumnNode(g.idGen.NewID(columnPrefix), tableName, columnName)
	g.addNodeLocked(c)

	if tid, ok := g.tableByName[strings.ToLower(tableName)]; ok {
		if t, ok := g.nodes[tid].(*TableNode); ok {
			t.Columns = append(t.Columns, c.id)
		}
	}
	return c
}

// NewExpression always creates and registers a fresh ExpressionNode;
// expression occurrences are never deduplicated by name.
func (g *Graph) NewExpression(kind ExpressionKind, name string) *ExpressionNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := NewExpressionNode(g.idGen.NewID(expressionPrefix), name, kind)
	g.addNodeLocked(e)
	return e
}

// AddEdge registers a directed edge. Edges are deduplicated by
// (sourceId, targetId, kind, operation): a second call with the same four
// values returns the already-registered edge rather than creating a
// duplicate. Both endpoints must already exist in the graph.
func (g *Graph) AddEdge(sourceID, targetID string, kind EdgeKind, op Operation, sqlExpression string) (*Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[sourceID]; !ok {
		return nil, fmt.Errorf("%w: source %q not found", ErrDanglingEdge, sourceID)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return nil, fmt.Errorf("%w: target %q not found", ErrDanglingEdge, targetID)
	}

	key := dedupKey(sourceID, targetID, kind, op)
	if id, ok := g.edgeDedup[key]; ok {
		return g.edges[id], nil
	}

	e := &Edge{
		id:            g.idGen.NewID(edgePrefix),
		SourceID:      sourceID,
		TargetID:      targetID,
		Kind:          kind,
		Operation:     op,
		SqlExpression: sqlExpression,
	}
	g.edges[e.id] = e
	g.edgeDedup[key] = e.id
	return e, nil
}

// GetNodeByID returns the node registered under id, if any.
func (g *Graph) GetNodeByID(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// GetColumnNode performs a case-insensitive lookup of a column by its
// owning table name and column name. At most one node can ever match, since
// EnsureColumn enforces the same case-folded key on insert.
func (g *Graph) GetColumnNode(tableName, columnName string) (*ColumnNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.columnIndex[columnKey(tableName, columnName)]
	if !ok {
		return nil, false
	}
	c, ok := g.nodes[id].(*ColumnNode)
	return c, ok
}

// GetTableNode performs a case-insensitive lookup of a table by name.
func (g *Graph) GetTableNode(tableName string) (*TableNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.tableByName[strings.ToLower(tableName)]
	if !ok {
		return nil, false
	}
	t, ok := g.nodes[id].(*TableNode)
	return t, ok
}

// GetNodesOfKind returns every node of the given kind, in registration
// order. The returned slice is a fresh copy; callers may mutate it freely.
func (g *Graph) GetNodesOfKind(kind NodeKind) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.kindIndex[kind]
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns every edge in the graph. The order is not defined: it
// follows map iteration and can differ between calls. The returned slice is
// a fresh copy.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// Compact rebuilds the internal indexes from the current node and edge sets
// without changing any id. It is safe to call at any time. No Graph method
// removes a node, so the rebuilt indexes hold the same entries as before; a
// dropped column is only marked in its metadata and keeps its index entries.
func (g *Graph) Compact() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Rebuild kindIndex by filtering the existing ordered lists rather than
	// ranging over g.nodes, whose map iteration order is random: a caller
	// relying on GetNodesOfKind's registration order (e.g. JSON rendering)
	// must see the same order before and after a Compact.
	kindIndex := make(map[NodeKind][]string, len(g.kindIndex))
	for kind, ids := range g.kindIndex {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := g.nodes[id]; ok {
				kept = append(kept, id)
			}
		}
		kindIndex[kind] = kept
	}

	tableByName := make(map[string]string)
	columnIndex := make(map[string]string)
	for id, n := range g.nodes {
		switch node := n.(type) {
		case *TableNode:
			tableByName[strings.ToLower(node.Name)] = id
		case *ColumnNode:
			columnIndex[columnKey(node.OwnerTableName, node.Name)] = id
		}
	}

	edgeDedup := make(map[string]string, len(g.edges))
	for id, e := range g.edges {
		edgeDedup[dedupKey(e.SourceID, e.TargetID, e.Kind, e.Operation)] = id
	}

	g.kindIndex = kindIndex
	g.tableByName = tableByName
	g.columnIndex = columnIndex
	g.edgeDedup = edgeDedup
}

// Statistics summarizes the graph's current node and edge counts.
type Statistics struct {
	NodeCounts      map[NodeKind]int
	EdgeCounts      map[EdgeKind]int
	OperationCounts map[Operation]int
}

// Statistics computes a snapshot of node and edge counts by kind.
func (g *Graph) Statistics() Statistics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Statistics{
		NodeCounts:      make(map[NodeKind]int),
		EdgeCounts:      make(map[EdgeKind]int),
		OperationCounts: make(map[Operation]int),
	}
	for kind, ids := range g.kindIndex {
		stats.NodeCounts[kind] = len(ids)
	}
	for _, e := range g.edges {
		stats.EdgeCounts[e.Kind]++
		stats.OperationCounts[e.Operation]++
	}
	return stats
}
