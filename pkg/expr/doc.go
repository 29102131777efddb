// Package expr compiles attribute paths and literal values into the placeholder
// tokens of DynamoDB condition, filter and update expressions.
//
// An AttributeMap belongs to a single request. Names are interned by their literal
// value, so "#status" is emitted once however often status is referenced:
//
//	attrs := expr.NewAttributeMap()
//	attrs.AddName(expr.Name("status"))          // "#status"
//	attrs.AddName(expr.Path{"address", "city"}) // "#address.#city"
//
// Values are never deduplicated. The first value keeps the bare leaf name and
// later ones take the running counter as suffix, which keeps simple expressions
// readable while allowing the same attribute twice:
//
//	attrs.AddValue(expr.Name("age"), 18) // ":age"
//	attrs.AddValue(expr.Name("age"), 65) // ":age1"
//
// Absent values (nil, nil pointers, nil maps and slices) are skipped and produce
// no placeholder. Go sets (map[T]struct{}) are sent as SS, NS or BS.
package expr
