package domain

import (
	"strconv"
	"strings"
)

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
)

// FieldSpec describes one editable field of a node kind.
type FieldSpec struct {
	Name string
	Type FieldType
}

var fieldRegistry = map[Kind][]FieldSpec{
	KindUser: {
		{Name: "name", Type: FieldText},
		{Name: "email", Type: FieldText},
	},
	KindResume: {
		{Name: "name", Type: FieldText},
		{Name: "description", Type: FieldText},
	},
	KindOrganization: {
		{Name: "name", Type: FieldText},
		{Name: "location", Type: FieldText},
		{Name: "description", Type: FieldText},
	},
	KindRole: {
		{Name: "title", Type: FieldText},
		{Name: "location", Type: FieldText},
		{Name: "description", Type: FieldText},
		{Name: "startDate", Type: FieldText},
		{Name: "endDate", Type: FieldText},
	},
	KindAchievement: {
		{Name: "content", Type: FieldText},
		{Name: "value", Type: FieldNumber},
	},
}

// FieldsFor returns the registered fields of a kind, in display order.
func FieldsFor(k Kind) []FieldSpec {
	return fieldRegistry[k]
}

// LookupField returns the spec for name on kind k.
func LookupField(k Kind, name string) (FieldSpec, bool) {
	for _, f := range fieldRegistry[k] {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FilterFields keeps only the entries of data that are registered for k.
// Unknown names are dropped, as are number fields that do not parse, so
// partial or sloppy payloads never fail a mutation.
func FilterFields(k Kind, data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for name, value := range data {
		spec, ok := LookupField(k, name)
		if !ok {
			continue
		}
		if spec.Type == FieldNumber {
			v := strings.TrimSpace(value)
			if v == "" {
				out[name] = ""
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			value = strconv.FormatFloat(f, 'f', -1, 64)
		}
		out[name] = value
	}
	return out
}

// DisplayField returns the field used as a node's title in listings.
func DisplayField(k Kind) string {
	switch k {
	case KindAchievement:
		return "content"
	case KindRole:
		return "title"
	default:
		return "name"
	}
}
