// Package diag defines the diagnostic model shared by every stage of the
// resource compiler.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced while
//     loading resources, parsing scripts, rebuilding script modules and
//     running precompile passes.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Resource – name of the resource the finding belongs to.
//   - Primary span – position in the authored text. Findings raised against
//     synthesized code are mapped back by the provenance table before they
//     reach a Bag.
//   - Notes – optional secondary spans/messages.
//
// # Ordering
//
// Bag is append-only. The precompile engine relies on emission order being
// the order of passes and resources, so Bag never sorts, filters or
// deduplicates. Truncation for display is a rendering concern
// (internal/diagfmt).
package diag
