package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/unitgrid/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// refName returns <name> from a `<root>.<name>` traversal expression.
func refName(expr hcl.Expression, root string) (string, error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return "", fmt.Errorf("%s: expected a reference like %s.<name>: %w", expr.Range(), root, diags)
	}
	if trav.RootName() != root || len(trav) != 2 {
		return "", fmt.Errorf("%s: expected a reference like %s.<name>", expr.Range(), root)
	}
	attr, ok := trav[1].(hcl.TraverseAttr)
	if !ok {
		return "", fmt.Errorf("%s: expected a reference like %s.<name>", expr.Range(), root)
	}
	return attr.Name, nil
}

// refNames reads either a single reference or a tuple of references. The
// second result reports whether the tuple form was used.
func refNames(expr hcl.Expression, root string) ([]string, bool, error) {
	if items, diags := hcl.ExprList(expr); !diags.HasErrors() {
		names := make([]string, 0, len(items))
		for _, item := range items {
			name, err := refName(item, root)
			if err != nil {
				return nil, true, err
			}
			names = append(names, name)
		}
		if len(names) == 0 {
			return nil, true, fmt.Errorf("%s: reference list must not be empty", expr.Range())
		}
		return names, true, nil
	}
	name, err := refName(expr, root)
	if err != nil {
		return nil, false, err
	}
	return []string{name}, false, nil
}

// checkRemain rejects top-level content other than unit and model blocks.
func checkRemain(body hcl.Body) error {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("unexpected top-level content: %w", diags)
	}
	for _, attr := range attrs {
		return fmt.Errorf("%s: unexpected top-level attribute %q", attr.Range, attr.Name)
	}
	return nil
}
