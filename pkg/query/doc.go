// Package query turns read directives (filters, sort, pagination, field
// selection) into transport-executable descriptors. It performs no I/O.
// See docs/ARCHITECTURE.md § Query Builder.
package query
