package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// fieldsFlag collects repeated --field name=value flags.
type fieldsFlag map[string]string

var _ pflag.Value = (*fieldsFlag)(nil)

func (f *fieldsFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	if *f == nil {
		*f = make(fieldsFlag)
	}
	(*f)[name] = value
	return nil
}

func (f *fieldsFlag) String() string {
	if f == nil || len(*f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*f))
	for k := range *f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + (*f)[k]
	}
	return strings.Join(parts, ",")
}

func (f *fieldsFlag) Type() string { return "name=value" }

func addFieldsFlag(fs *pflag.FlagSet, f *fieldsFlag) {
	fs.VarP(f, "field", "f", "Field to set, repeatable (e.g. -f title=Engineer)")
}
