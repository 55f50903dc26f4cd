package extractor

import (
	"github.com/Venkat5694/nuclide/pkg/parser/queries"
)

// ExportKind distinguishes runtime values from type-only exports.
type ExportKind string

const (
	// KindValue marks functions, classes, variables, and enums.
	KindValue ExportKind = "value"
	// KindType marks interfaces, type aliases, and type-only specifiers.
	KindType ExportKind = "type"
)

// ExportDescriptor describes one exported symbol of a module.
type ExportDescriptor struct {
	// Name is the exported identifier. Named default exports keep their
	// local identifier ("export default function foo" yields "foo");
	// anonymous default exports use "default".
	Name string

	// Kind is value or type.
	Kind ExportKind

	// IsDefault marks the module's default export.
	IsDefault bool

	// IsReExport marks symbols forwarded from another module.
	IsReExport bool

	// Origin is the unresolved source specifier of a re-export
	// ("./other" in `export { foo } from './other'`). Provenance only;
	// the symbol is indexed under the forwarding module.
	Origin string

	// Loc is the location of the exported name.
	Loc queries.Location
}

// ImportBinding is one named binding inside an import clause.
type ImportBinding struct {
	// Name is the imported (exported-side) name.
	Name string

	// Alias is the local rename, empty when none.
	Alias string

	// TypeOnly marks `import { type Foo }` specifiers.
	TypeOnly bool

	// Loc spans the whole specifier, including any alias.
	Loc queries.Location
}

// LocalName returns the identifier the binding introduces into scope.
func (b ImportBinding) LocalName() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Name
}

// ImportStatement models one import statement of a source file. The
// formatter merges new bindings into these and the diagnostics engine
// derives imported names from them.
type ImportStatement struct {
	// Specifier is the module specifier string, unquoted.
	Specifier string

	// Default is the default-import local name, empty when absent.
	Default string

	// Namespace is the `import * as ns` local name, empty when absent.
	Namespace string

	// Named lists the named bindings in source order.
	Named []ImportBinding

	// TypeOnly marks `import type { ... }` statements.
	TypeOnly bool

	// SideEffectOnly marks bare `import './x'` statements.
	SideEffectOnly bool

	// Loc spans the whole statement.
	Loc queries.Location

	// NamedListLoc spans the `{ ... }` clause when present.
	NamedListLoc *queries.Location

	// DefaultLoc spans the default binding identifier when present.
	DefaultLoc *queries.Location
}

// BindsName reports whether the statement introduces localName into scope.
func (s ImportStatement) BindsName(localName string) bool {
	if s.Default == localName || s.Namespace == localName {
		return true
	}
	for _, b := range s.Named {
		if b.LocalName() == localName {
			return true
		}
	}
	return false
}
