// Package schema validates values against declared shapes.
//
// Shapes compile to OpenAPI schemas once and are cached. Validation runs in
// three passes: a structural pass that handles optionality, null and unknown
// fields; an OpenAPI pass that collects every type, enum and length
// violation; and a coercion pass that produces the typed value.
// See docs/ARCHITECTURE.md § Schema Validator.
package schema
