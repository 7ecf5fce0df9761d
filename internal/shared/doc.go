// Package shared holds cross-cutting helpers that belong to no single
// domain package. Today that is only the testutil subpackage with the
// buffered slog handler used by tests across the tree.
//
// Nothing here may depend on other internal packages; that keeps it
// importable from every test without cycles.
package shared
