// Package jsonschema provides utilities for generating and representing JSON Schema
// structures from Go types using reflection.
//
// It supports structs, primitives, slices, maps, pointers, and recursive types.
// Recursive type references are automatically resolved using $ref and $defs to
// avoid infinite loops during schema generation.
//
// The main entry point is [GenerateJSONSchema], which derives a [Schema] from any
// Go type T at compile time without requiring a runtime value.
//
// providers/tool.Tool[T] calls it once per registered tool type (e.g.
// providers/tool/calculator's request struct) to build the ai.ToolDescription
// an llm node advertises in its catalog (nodes/llm.go's tool-calling loop);
// core/client.Client's structured-output path calls it again to build the
// response schema a provider is asked to conform to.
package jsonschema
