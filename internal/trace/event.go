package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeDriver covers a whole build: manifest, resources, session.
	ScopeDriver Scope = iota + 1
	// ScopePass covers one pass index of the precompile engine.
	ScopePass
	// ScopeResource covers one resolver invocation for one resource, or one bucket rebuild.
	ScopeResource
	// ScopeNode covers provenance and per-node work.
	ScopeNode
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeResource:
		return "resource"
	case ScopeNode:
		return "node"
	default:
		return "unknown"
	}
}

// NoPass marks events that do not belong to a pass.
const NoPass = -1

// Event represents a single trace event.
type Event struct {
	Time     time.Time
	Seq      uint64 // global sequence number (monotonic)
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Name     string // e.g. "pass", "generate", "resolve"
	Pass     int    // pass index or NoPass
	Resource string // resource name or bucket path
	Detail   string
	Extra    map[string]string
}
