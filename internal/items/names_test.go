package items

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d2stats/internal"
)

func TestResolveDisplayNames(t *testing.T) {
	idx, err := ParseDisplayNameIndex([]byte(`{
		"blink": {"dname": "Blink Dagger", "cost": 2250},
		"recipe_x": {"cost": 500},
		"weird": 5
	}`))
	require.NoError(t, err)
	assert.Equal(t, DisplayNameIndex{"blink": "Blink Dagger"}, idx)

	list := []internal.NormalizedItem{
		internal.NewNormalizedItem("item_blink"),
		internal.NewNormalizedItem("item_recipe_x"),
		internal.NewNormalizedItem("item_unknown"),
	}
	n := ResolveDisplayNames(list, idx)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Blink Dagger", list[0].Name)
	assert.Equal(t, "item_recipe_x", list[1].Name)
	assert.Equal(t, "item_unknown", list[2].Name)
}

func TestParseDisplayNameIndexErrors(t *testing.T) {
	_, err := ParseDisplayNameIndex([]byte(`{"blink": {"dname": 3}}`))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = ParseDisplayNameIndex([]byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = ParseDisplayNameIndex([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "blink", ShortName("item_blink"))
	assert.Equal(t, "blink", ShortName("blink"))
}
