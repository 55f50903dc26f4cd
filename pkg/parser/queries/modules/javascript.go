// Package modules holds the tree-sitter query source used for module
// import and export extraction.
//
// Capture conventions:
//   - @import.*  import-related nodes
//   - @export.*  export-related nodes
//   - @_*        anchors for #eq? predicates, dropped from results
//
// Specifier-level captures (@export.spec, @export.reexport.spec) capture
// the export_specifier node itself; the extractor reads the name and alias
// fields in Go so aliased and plain specifiers share one pattern.
package modules

// JavaScriptImports locates every ES import statement. The extractor walks
// the captured statement node to build the full statement model, so one
// pattern suffices.
const JavaScriptImports = `
(import_statement) @import.statement
`

// JavaScriptExports matches ES module and CommonJS export forms.
const JavaScriptExports = `
; export function foo() {}
(export_statement
  declaration: (function_declaration
    name: (identifier) @export.function)
)

; export function* gen() {}
(export_statement
  declaration: (generator_function_declaration
    name: (identifier) @export.function)
)

; export class Foo {}
(export_statement
  declaration: (class_declaration
    name: (identifier) @export.class)
)

; export const foo = 1, bar = 2;
(export_statement
  declaration: (lexical_declaration
    (variable_declarator
      name: (identifier) @export.variable))
)

; export var foo = 1;
(export_statement
  declaration: (variable_declaration
    (variable_declarator
      name: (identifier) @export.variable))
)

; export default function foo() {} / class Foo {}
; The local name is kept so completion can offer it.
(export_statement
  "default"
  declaration: (function_declaration
    name: (identifier) @export.default.name)
)

(export_statement
  "default"
  declaration: (generator_function_declaration
    name: (identifier) @export.default.name)
)

(export_statement
  "default"
  declaration: (class_declaration
    name: (identifier) @export.default.name)
)

; export default foo;
(export_statement
  "default"
  value: (identifier) @export.default.ident
)

; export default <anonymous expression>
(export_statement
  "default"
  value: (_) @export.default.value
)

; export { foo, bar as baz };
(export_statement
  (export_clause
    (export_specifier) @export.spec)
  !source
)

; export { foo, bar as baz } from './other';
(export_statement
  (export_clause
    (export_specifier) @export.reexport.spec)
  source: (string (string_fragment) @export.reexport.source)
)

; export * from './other';
(export_statement
  "*"
  source: (string (string_fragment) @export.star.source)
)

; export * as ns from './other';
(export_statement
  (namespace_export
    (identifier) @export.star.alias)
  source: (string (string_fragment) @export.star.source)
)

; module.exports = foo
(assignment_expression
  left: (member_expression
    object: (identifier) @_module (#eq? @_module "module")
    property: (property_identifier) @_exports (#eq? @_exports "exports"))
  right: (identifier) @export.commonjs.default
)

; module.exports = { foo, bar }
(assignment_expression
  left: (member_expression
    object: (identifier) @_module (#eq? @_module "module")
    property: (property_identifier) @_exports (#eq? @_exports "exports"))
  right: (object
    (shorthand_property_identifier) @export.commonjs.name)
)

; module.exports = { foo: value }
(assignment_expression
  left: (member_expression
    object: (identifier) @_module (#eq? @_module "module")
    property: (property_identifier) @_exports (#eq? @_exports "exports"))
  right: (object
    (pair
      key: (property_identifier) @export.commonjs.name))
)

; exports.foo = value
(assignment_expression
  left: (member_expression
    object: (identifier) @_exports (#eq? @_exports "exports")
    property: (property_identifier) @export.commonjs.name)
)

; module.exports.foo = value
(assignment_expression
  left: (member_expression
    object: (member_expression
      object: (identifier) @_module (#eq? @_module "module")
      property: (property_identifier) @_exports (#eq? @_exports "exports"))
    property: (property_identifier) @export.commonjs.name)
)
`
