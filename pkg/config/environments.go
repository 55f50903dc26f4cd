package config

// baselineGlobals are the ECMAScript built-ins every file sees regardless
// of configured environments. Identifiers in this set never produce
// missing-import diagnostics.
var baselineGlobals = []string{
	"Array", "ArrayBuffer", "AsyncIterator", "Atomics", "BigInt",
	"BigInt64Array", "BigUint64Array", "Boolean", "DataView", "Date",
	"Error", "EvalError", "FinalizationRegistry", "Float32Array",
	"Float64Array", "Function", "Infinity", "Int16Array", "Int32Array",
	"Int8Array", "Intl", "Iterator", "JSON", "Map", "Math", "NaN",
	"Number", "Object", "Promise", "Proxy", "RangeError", "ReferenceError",
	"Reflect", "RegExp", "Set", "SharedArrayBuffer", "String", "Symbol",
	"SyntaxError", "TypeError", "URIError", "Uint16Array", "Uint32Array",
	"Uint8Array", "Uint8ClampedArray", "WeakMap", "WeakRef", "WeakSet",
	"decodeURI", "decodeURIComponent", "encodeURI", "encodeURIComponent",
	"eval", "globalThis", "isFinite", "isNaN", "parseFloat", "parseInt",
	"undefined",
	// TypeScript utility types resolve ambiently too.
	"Partial", "Required", "Readonly", "Record", "Pick", "Omit",
	"Exclude", "Extract", "NonNullable", "Parameters", "ReturnType",
	"InstanceType", "Awaited",
}

// environmentGlobals maps a configurable environment name to the global
// identifiers it contributes.
var environmentGlobals = map[string][]string{
	"node": {
		"Buffer", "__dirname", "__filename", "clearImmediate",
		"clearInterval", "clearTimeout", "console", "exports", "global",
		"module", "process", "queueMicrotask", "require", "setImmediate",
		"setInterval", "setTimeout", "structuredClone", "TextDecoder",
		"TextEncoder", "URL", "URLSearchParams",
	},
	"browser": {
		"AbortController", "Blob", "CustomEvent", "DOMParser", "Document",
		"Element", "Event", "EventTarget", "FileReader", "FormData",
		"HTMLElement", "Headers", "Image", "IntersectionObserver",
		"MutationObserver", "Node", "Request", "ResizeObserver", "Response",
		"TextDecoder", "TextEncoder", "URL", "URLSearchParams", "WebSocket",
		"Worker", "XMLHttpRequest", "alert", "atob", "btoa",
		"cancelAnimationFrame", "clearInterval", "clearTimeout", "console",
		"customElements", "document", "fetch", "history", "indexedDB",
		"localStorage", "location", "navigator", "requestAnimationFrame",
		"sessionStorage", "setInterval", "setTimeout", "window",
	},
	"jest": {
		"afterAll", "afterEach", "beforeAll", "beforeEach", "describe",
		"expect", "fit", "it", "jest", "test", "xdescribe", "xit", "xtest",
	},
}
