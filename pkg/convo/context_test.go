package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSkipsEmptyValues(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{"category": "electronics"})

	c.MergeFacts(map[string]any{
		"category":    "",
		"subcategory": nil,
		"preferences": []any{},
		"budget":      map[string]any{},
	})

	assert.Equal(t, "electronics", c.Get("category", nil))
	assert.False(t, c.Has("subcategory"))
	assert.False(t, c.Has("preferences"))
	assert.False(t, c.Has("budget"))
	assert.Len(t, c.Facts, 1)
}

func TestMergeEmptyUpdatesIsNoOp(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{"intent": "BUY"})

	c.MergeFacts(nil)
	c.MergeFacts(map[string]any{})

	assert.Equal(t, map[string]any{"intent": "BUY"}, c.Facts)
}

func TestMergeSpecificationsKeyWise(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{
		SpecificationsKey: map[string]any{"ram": "16GB", "screen": "14in"},
	})
	c.MergeFacts(map[string]any{
		SpecificationsKey: map[string]any{"ram": "32GB", "storage": "1TB"},
	})

	specs, ok := c.Facts[SpecificationsKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "32GB", specs["ram"])
	assert.Equal(t, "14in", specs["screen"])
	assert.Equal(t, "1TB", specs["storage"])
}

func TestMergeLastWriteWins(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{"budget": "$500"})
	c.MergeFacts(map[string]any{"budget": "$800"})
	assert.Equal(t, "$800", c.Get("budget", nil))
}

func TestGetResolvesFactsBeforeAssumptions(t *testing.T) {
	c := NewContext()
	c.Merge(map[string]any{"category": "books"}, SectionAssumptions)
	assert.Equal(t, "books", c.Get("category", nil))

	c.MergeFacts(map[string]any{"category": "electronics"})
	assert.Equal(t, "electronics", c.Get("category", nil))

	assert.Equal(t, "fallback", c.Get("missing", "fallback"))
}

func TestHasAllAndMissingKeys(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{"intent": "BUY", "category": "electronics"})

	required := []string{"intent", "category", "budget", "subcategory"}
	assert.False(t, c.HasAll(required))
	assert.Equal(t, []string{"budget", "subcategory"}, c.MissingKeys(required))

	c.MergeFacts(map[string]any{"budget": "$1000", "subcategory": "laptop"})
	assert.True(t, c.HasAll(required))
	assert.Nil(t, c.MissingKeys(required))
}

func TestMergeSections(t *testing.T) {
	c := NewContext()
	c.Merge(map[string]any{"delivery": "express"}, SectionConstraints)
	c.Merge(map[string]any{"intent": "BUY"}, SectionUserIntent)

	assert.Equal(t, "express", c.Constraints["delivery"])
	assert.Equal(t, "BUY", c.UserIntent["intent"])
	assert.Empty(t, c.Facts)
}

func TestSnapshotIsCopy(t *testing.T) {
	c := NewContext()
	c.MergeFacts(map[string]any{"category": "electronics"})

	snap := c.Snapshot()
	snap["facts"]["category"] = "mutated"

	assert.Equal(t, "electronics", c.Facts["category"])
}
