package document

import "medusa/internal/address"

// EdgeType is the type carried by a ControlFlowGraph edge.
type EdgeType int

const (
	EdgeUnconditional EdgeType = iota
	EdgeTrue
	EdgeFalse
)

func (t EdgeType) String() string {
	switch t {
	case EdgeUnconditional:
		return "Unconditional"
	case EdgeTrue:
		return "True"
	case EdgeFalse:
		return "False"
	default:
		return "Unknown"
	}
}

// BasicBlockVertex is a CFG vertex: an ordered, non-overlapping run of
// addresses with a single entry and (at most) one control-flow exit.
type BasicBlockVertex struct {
	Addresses address.List
}

// Edge is a directed, typed CFG edge between two vertices: Src is the
// address of the branching instruction (the last address of its vertex),
// Dst the first address of the vertex it branches to.
type Edge struct {
	Src  address.Address
	Dst  address.Address
	Type EdgeType
}

// ControlFlowGraph is the CFG of a single function: basic-block vertices
// plus typed edges between them, along with a per-address index so callers
// can find "the vertex containing this address" in O(1).
//
// Construction follows Medusa's BuildControlFlowGraph: collect every
// reachable address into a single vertex, collect raw (dst, src, type)
// edges, then split the vertex wherever an edge lands mid-block, and only
// then register the edges. This order matters: SplitBasicBlock must run
// for every edge before any edge is inserted, or an edge could attach to a
// vertex that a later split invalidates.
type ControlFlowGraph struct {
	vertices   []*BasicBlockVertex
	addrToVert map[address.Address]int
	edgesOut   map[address.Address][]Edge // by source instruction address (a vertex's last address)
	edgesIn    map[address.Address][]Edge // by vertex-start address
}

// NewControlFlowGraph seeds the CFG with a single vertex containing every
// reachable address, in visitation order.
func NewControlFlowGraph(addrs address.List) *ControlFlowGraph {
	cfg := &ControlFlowGraph{
		addrToVert: make(map[address.Address]int),
		edgesOut:   make(map[address.Address][]Edge),
		edgesIn:    make(map[address.Address][]Edge),
	}
	if len(addrs) == 0 {
		return cfg
	}
	v := &BasicBlockVertex{Addresses: append(address.List(nil), addrs...)}
	cfg.vertices = append(cfg.vertices, v)
	for _, a := range addrs {
		cfg.addrToVert[a] = 0
	}
	return cfg
}

// Vertices returns every basic-block vertex, in creation order (the first
// vertex always starts at the function entry).
func (c *ControlFlowGraph) Vertices() []*BasicBlockVertex { return c.vertices }

// VertexContaining returns the vertex owning addr, if any.
func (c *ControlFlowGraph) VertexContaining(addr address.Address) (*BasicBlockVertex, bool) {
	idx, ok := c.addrToVert[addr]
	if !ok {
		return nil, false
	}
	return c.vertices[idx], true
}

// SplitBasicBlock ensures dst begins a vertex: whichever vertex contains
// dst (other than as its first address) is split in two at dst, ready for
// an edge (src, dst, type) to be added afterwards. It does not split at
// src; the src and type arguments are not used.
func (c *ControlFlowGraph) SplitBasicBlock(dst, src address.Address, _ EdgeType) bool {
	idx, ok := c.addrToVert[dst]
	if !ok {
		return false
	}
	v := c.vertices[idx]
	pos := v.Addresses.IndexOf(dst)
	if pos <= 0 {
		// dst is already a vertex's first address (or not found defensively).
		return pos == 0
	}

	head := append(address.List(nil), v.Addresses[:pos]...)
	tail := append(address.List(nil), v.Addresses[pos:]...)

	v.Addresses = head
	newVert := &BasicBlockVertex{Addresses: tail}
	newIdx := len(c.vertices)
	c.vertices = append(c.vertices, newVert)
	for _, a := range tail {
		c.addrToVert[a] = newIdx
	}
	return true
}

// AddEdge inserts a typed edge from the instruction at src to the vertex
// beginning at dst. Must run only after every SplitBasicBlock call for this
// CFG has completed.
func (c *ControlFlowGraph) AddEdge(src, dst address.Address, typ EdgeType) {
	e := Edge{Src: src, Dst: dst, Type: typ}
	c.edgesOut[src] = append(c.edgesOut[src], e)
	c.edgesIn[dst] = append(c.edgesIn[dst], e)
}

// OutEdges returns the outgoing edges of the vertex whose last address is
// the last element that was passed to AddEdge as src.
func (c *ControlFlowGraph) OutEdges(vertexLastAddr address.Address) []Edge {
	return c.edgesOut[vertexLastAddr]
}

func (c *ControlFlowGraph) InEdges(vertexFirstAddr address.Address) []Edge {
	return c.edgesIn[vertexFirstAddr]
}

// GetNextAddress appends every successor address reachable from addr (via
// the vertex containing addr, or addr's own outgoing edges if addr is the
// last address of its vertex) to out, returning false if there is none —
// the C8 tracker's forward traversal primitive.
func (c *ControlFlowGraph) GetNextAddress(addr address.Address, out *address.List) bool {
	v, ok := c.VertexContaining(addr)
	if !ok {
		return false
	}
	pos := v.Addresses.IndexOf(addr)
	if pos < len(v.Addresses)-1 {
		*out = append(*out, v.Addresses[pos+1])
		return true
	}
	edges := c.edgesOut[addr]
	if len(edges) == 0 {
		return false
	}
	for _, e := range edges {
		*out = append(*out, e.Dst)
	}
	return true
}

// GetPreviousAddress is GetNextAddress's mirror for backward tracking.
func (c *ControlFlowGraph) GetPreviousAddress(addr address.Address, out *address.List) bool {
	v, ok := c.VertexContaining(addr)
	if !ok {
		return false
	}
	pos := v.Addresses.IndexOf(addr)
	if pos > 0 {
		*out = append(*out, v.Addresses[pos-1])
		return true
	}
	edges := c.edgesIn[addr]
	if len(edges) == 0 {
		return false
	}
	for _, e := range edges {
		*out = append(*out, e.Src)
	}
	return true
}
