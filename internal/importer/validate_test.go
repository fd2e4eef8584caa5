package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `
kind: resume
fields:
  name: Main
children:
  - fields: {name: Acme, location: Basel}
    children:
      - fields: {title: Engineer, startDate: "2020"}
        children:
          - fields: {content: Cut build time, value: "40"}
          - kind: achievement
            fields: {content: Mentored two interns}
      - fields: {title: Lead}
  - fields: {name: Globex}
`

func mustParse(t *testing.T, src string) *NodeImport {
	t.Helper()
	root, err := ParseImport([]byte(src))
	require.NoError(t, err)
	return root
}

func joinErrs(errs []error) string {
	return fmt.Sprint(errs)
}

func TestValidateImport_Valid(t *testing.T) {
	root := mustParse(t, sampleResume)
	assert.Empty(t, ValidateImport(root))
	assert.Equal(t, 7, root.Count())
}

func TestValidateImport_JSON(t *testing.T) {
	root := mustParse(t, `{"kind": "organization", "fields": {"name": "Acme"}, "children": [{"fields": {"title": "Dev"}}]}`)
	assert.Empty(t, ValidateImport(root))
}

func TestValidateImport_RootKind(t *testing.T) {
	errs := ValidateImport(mustParse(t, "fields: {name: x}"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "unknown node kind")

	errs = ValidateImport(mustParse(t, "kind: user\nfields: {name: x}"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "user create")

	assert.Len(t, ValidateImport(nil), 1)
}

func TestValidateImport_CollectsAllErrors(t *testing.T) {
	root := mustParse(t, `
kind: organization
fields: {name: Acme, color: red}
children:
  - kind: resume
    fields: {title: Dev}
  - fields: {location: Bern}
    children:
      - fields: {content: Did it, value: lots}
        children:
          - fields: {content: nested}
`)
	errs := ValidateImport(root)
	msg := joinErrs(errs)

	assert.Len(t, errs, 5)
	assert.Contains(t, msg, "root.fields.color: unknown organization field")
	assert.Contains(t, msg, "root.children[0].kind: expected role")
	assert.Contains(t, msg, "root.children[1].fields.title is required")
	assert.Contains(t, msg, `root.children[1].children[0].fields.value: "lots" is not a number`)
	assert.Contains(t, msg, "root.children[1].children[0]: achievement cannot have children")
}

func TestParseImport_BadYAML(t *testing.T) {
	_, err := ParseImport([]byte("kind: [resume"))
	assert.ErrorContains(t, err, "parsing import file")
}
