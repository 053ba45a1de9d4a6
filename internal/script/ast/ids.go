package ast

import (
	"sync/atomic"

	"rescomp/internal/source"
)

// NodeID identifies a node for the lifetime of the process. Zero is never issued.
type NodeID uint64

// NoNodeID marks an absent node.
const NoNodeID NodeID = 0

var lastID atomic.Uint64

// NextID allocates a fresh node identity.
func NextID() NodeID { return NodeID(lastID.Add(1)) }

// Node is implemented by every tree element.
type Node interface {
	ID() NodeID
	Span() source.Span
}

// Base carries identity and authored position. Pos is zero for synthesized nodes.
type Base struct {
	NodeID NodeID
	Pos    source.Span
}

// At returns a Base with a fresh identity at pos.
func At(pos source.Span) Base { return Base{NodeID: NextID(), Pos: pos} }

// Synthetic returns a Base with a fresh identity and no position.
func Synthetic() Base { return Base{NodeID: NextID()} }

func (b *Base) ID() NodeID        { return b.NodeID }
func (b *Base) Span() source.Span { return b.Pos }
