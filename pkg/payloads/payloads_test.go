package payloads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/ruleset"
)

func TestLibrary_Defaults(t *testing.T) {
	lib := New(nil)
	assert.Equal(t, []string{"sqli", "xss", "lfi", "ssti", "cmdi", "xxe"}, lib.IDs())
	assert.Equal(t, 54, lib.Count())
	assert.Len(t, lib.EventHandlers(), 13)
	assert.Equal(t, "onload=alert(1)><svg/1=", lib.EventHandlers()[0])
}

func TestSearch_CaseInsensitive(t *testing.T) {
	lib := New(nil)

	results := lib.Search("SLEEP")
	require.Len(t, results, 1)
	assert.Equal(t, "sqli", results[0].ID)
	require.Len(t, results[0].Payloads, 1)
	assert.Equal(t, "' AND SLEEP(5)--", results[0].Payloads[0].Payload)

	results = lib.Search("basic ALERT")
	require.Len(t, results, 1)
	assert.Equal(t, "xss", results[0].ID)
}

func TestSearch_DropsEmptyCategories(t *testing.T) {
	results := New(nil).Search("etc/passwd")
	ids := make([]string, 0, len(results))
	for _, c := range results {
		ids = append(ids, c.ID)
		assert.NotEmpty(t, c.Payloads)
	}
	assert.Equal(t, []string{"lfi", "xxe"}, ids)

	assert.Empty(t, New(nil).Search("no-such-payload-anywhere"))
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	lib := New(nil)
	assert.Equal(t, lib.Categories(), lib.Search(""))
}

func TestSearch_DoesNotMutateLibrary(t *testing.T) {
	lib := New(nil)
	before := len(lib.Categories()[0].Payloads)
	_ = lib.Search("union")
	assert.Equal(t, before, len(lib.Categories()[0].Payloads))
}

func TestFilter(t *testing.T) {
	lib := New(nil)
	results := lib.Filter("etc/passwd", "XXE")
	require.Len(t, results, 1)
	assert.Equal(t, "xxe", results[0].ID)

	assert.Len(t, lib.Filter("", "sqli", "cmdi"), 2)
	assert.Len(t, lib.Filter(""), 6)
}

func TestCategory(t *testing.T) {
	lib := New(&ruleset.Set{Payloads: []ruleset.PayloadCategory{
		{ID: "custom", Name: "Custom", Payloads: []ruleset.Payload{{Title: "t", Payload: "p"}}},
	}})

	c, err := lib.Category("CUSTOM")
	require.NoError(t, err)
	assert.Equal(t, "Custom", c.Name)

	_, err = lib.Category("sqli")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
