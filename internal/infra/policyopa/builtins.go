package policyopa

import "github.com/open-policy-agent/opa/ast"

// Admission policies may only call deterministic builtins that read nothing
// outside their input.
var allowedBuiltins = map[string]struct{}{
	"and":         {},
	"assign":      {},
	"concat":      {},
	"contains":    {},
	"count":       {},
	"endswith":    {},
	"eq":          {},
	"equal":       {},
	"format_int":  {},
	"gt":          {},
	"gte":         {},
	"lower":       {},
	"lt":          {},
	"lte":         {},
	"max":         {},
	"min":         {},
	"minus":       {},
	"neq":         {},
	"object.get":  {},
	"plus":        {},
	"regex.match": {},
	"sort":        {},
	"sprintf":     {},
	"startswith":  {},
	"sum":         {},
	"trim":        {},
	"trim_space":  {},
	"upper":       {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
