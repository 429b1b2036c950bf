// Package meta is a read/write model of compiled modules: type and method
// definitions, method bodies as instruction streams, and references to types
// and methods as they appear in instruction operands.
//
// # Type references
//
// A TypeRef is one of three variants:
//
//   - KindDefinition: a declared type, by full name ("Ns.Name", "Outer/Inner")
//   - KindInstance: a generic definition applied to arguments ("Ns.Box`1<T>")
//   - KindParameter: a generic parameter, by kind (type or method) and position
//
// Definitions outside the loaded module set (for example the core library)
// are still valid references; they simply do not resolve through a Registry.
//
// # Binary format
//
// Modules are stored as the magic "CMOD", a little-endian uint16 schema
// version and a msgpack document. Parent links (declaring type, owning
// module) are not stored and are restored by Decode.
package meta
