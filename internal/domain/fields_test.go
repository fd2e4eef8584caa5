package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterFields_DropsUnknownNames(t *testing.T) {
	got := FilterFields(KindRole, map[string]string{
		"title":   "Engineer",
		"salary":  "lots",
		"endDate": "2024-01",
	})
	assert.Equal(t, map[string]string{"title": "Engineer", "endDate": "2024-01"}, got)
}

func TestFilterFields_NormalisesNumbers(t *testing.T) {
	got := FilterFields(KindAchievement, map[string]string{
		"content": "Shipped",
		"value":   " 3.50 ",
	})
	assert.Equal(t, "3.5", got["value"])

	got = FilterFields(KindAchievement, map[string]string{"value": "abc"})
	assert.NotContains(t, got, "value", "unparseable numbers are dropped")

	got = FilterFields(KindAchievement, map[string]string{"value": ""})
	assert.Equal(t, "", got["value"], "clearing a number is allowed")
}

func TestFilterFields_UnknownKind(t *testing.T) {
	assert.Empty(t, FilterFields("nope", map[string]string{"name": "x"}))
}

func TestFieldsFor_EveryKindHasItsDisplayField(t *testing.T) {
	for _, k := range Hierarchy {
		specs := FieldsFor(k)
		assert.NotEmpty(t, specs, k)
		_, ok := LookupField(k, DisplayField(k))
		assert.True(t, ok, "%s must register %s", k, DisplayField(k))
	}
}
