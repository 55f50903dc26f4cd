package modules

// TypeScriptImports locates every import statement, including type-only
// forms (the "type" token is inspected in Go, not in the query).
const TypeScriptImports = `
(import_statement) @import.statement
`

// TypeScriptExports matches TypeScript export forms. Class and interface
// names are type_identifier nodes in this grammar, unlike JavaScript.
const TypeScriptExports = `
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
    name: (type_identifier) @export.class)
)

; export abstract class Foo {}
(export_statement
  declaration: (abstract_class_declaration
    name: (type_identifier) @export.class)
)

; export const foo = 1;
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

; export interface User {}
(export_statement
  declaration: (interface_declaration
    name: (type_identifier) @export.interface)
)

; export type ID = string;
(export_statement
  declaration: (type_alias_declaration
    name: (type_identifier) @export.typealias)
)

; export enum Color {}
(export_statement
  declaration: (enum_declaration
    name: (identifier) @export.enum)
)

; export default function foo() {} / class Foo {}
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
    name: (type_identifier) @export.default.name)
)

(export_statement
  "default"
  declaration: (abstract_class_declaration
    name: (type_identifier) @export.default.name)
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

; export { foo, bar as baz }; / export type { Foo };
; Type-only markers are read from the statement node in Go.
(export_statement
  (export_clause
    (export_specifier) @export.spec)
  !source
)

; export { foo } from './other'; / export type { Foo } from './other';
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
`
