package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomhug/resumedit/internal/domain"
)

// ValidateImport checks the whole tree and returns every problem found.
func ValidateImport(root *NodeImport) []error {
	if root == nil {
		return []error{fmt.Errorf("empty import")}
	}
	kind, err := domain.ParseKind(root.Kind)
	if err != nil {
		return []error{fmt.Errorf("kind: %w", err)}
	}
	if kind == domain.KindUser {
		return []error{fmt.Errorf("kind: users are created with `user create`, not imported")}
	}
	return validateNode(root, kind, "root")
}

func validateNode(n *NodeImport, kind domain.Kind, path string) []error {
	var errs []error

	if n.Kind != "" {
		if got, err := domain.ParseKind(n.Kind); err != nil || got != kind {
			errs = append(errs, fmt.Errorf("%s.kind: expected %s, got %q", path, kind, n.Kind))
		}
	}
	display := domain.DisplayField(kind)
	if strings.TrimSpace(n.Fields[display]) == "" {
		errs = append(errs, fmt.Errorf("%s.fields.%s is required", path, display))
	}
	for name, value := range n.Fields {
		spec, ok := domain.LookupField(kind, name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s.fields.%s: unknown %s field", path, name, kind))
			continue
		}
		if spec.Type == domain.FieldNumber && strings.TrimSpace(value) != "" {
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				errs = append(errs, fmt.Errorf("%s.fields.%s: %q is not a number", path, name, value))
			}
		}
	}

	if len(n.Children) == 0 {
		return errs
	}
	childKind, ok := domain.ChildKind(kind)
	if !ok {
		return append(errs, fmt.Errorf("%s: %s cannot have children", path, kind))
	}
	for i := range n.Children {
		errs = append(errs, validateNode(&n.Children[i], childKind, fmt.Sprintf("%s.children[%d]", path, i))...)
	}
	return errs
}
