package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode builds a tree from a JSON document the way the client does:
// through encoding/json, so numbers are float64.
func decode(t *testing.T, doc string) *Tree {
	t.Helper()
	var root any
	require.NoError(t, json.Unmarshal([]byte(doc), &root))
	tree := NewTree()
	tree.Replace(root)
	return tree
}

func TestTreeGet(t *testing.T) {
	tree := decode(t, `{
		"volume": -20,
		"muted": false,
		"inputs": [{"label": "A", "visible": true}, {"label": "B", "visible": false}],
		"upmix": {"select": "auro"}
	}`)

	t.Run("TopLevelScalar", func(t *testing.T) {
		v, err := tree.Get("/volume")
		require.NoError(t, err)
		assert.Equal(t, float64(-20), v)
	})

	t.Run("NestedMap", func(t *testing.T) {
		v, err := tree.Get("/upmix/select")
		require.NoError(t, err)
		assert.Equal(t, "auro", v)
	})

	t.Run("ArrayIndex", func(t *testing.T) {
		v, err := tree.Get("/inputs/1/label")
		require.NoError(t, err)
		assert.Equal(t, "B", v)
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := tree.Get("/nosuch")
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		_, err := tree.Get("/inputs/7/label")
		assert.ErrorIs(t, err, ErrBadIndex)
	})

	t.Run("NonNumericIndex", func(t *testing.T) {
		_, err := tree.Get("/inputs/first/label")
		assert.ErrorIs(t, err, ErrBadIndex)
	})

	t.Run("DescendThroughScalar", func(t *testing.T) {
		_, err := tree.Get("/volume/deeper")
		assert.ErrorIs(t, err, ErrNotContainer)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := tree.Get("/")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestTreeSet(t *testing.T) {
	t.Run("TopLevel", func(t *testing.T) {
		tree := decode(t, `{"volume": -20}`)
		require.NoError(t, tree.Set("/volume", float64(-10)))
		v, err := tree.Get("/volume")
		require.NoError(t, err)
		assert.Equal(t, float64(-10), v)
	})

	t.Run("ArrayElementField", func(t *testing.T) {
		tree := decode(t, `{"inputs": [{"label": "A"}, {"label": "B"}]}`)
		require.NoError(t, tree.Set("/inputs/0/label", "HDMI1"))

		v, err := tree.Get("/inputs/0/label")
		require.NoError(t, err)
		assert.Equal(t, "HDMI1", v)

		// Sibling untouched.
		v, err = tree.Get("/inputs/1/label")
		require.NoError(t, err)
		assert.Equal(t, "B", v)
	})

	t.Run("NewMapKey", func(t *testing.T) {
		tree := decode(t, `{"upmix": {"select": "off"}}`)
		require.NoError(t, tree.Set("/upmix/last", "auro"))
		v, err := tree.Get("/upmix/last")
		require.NoError(t, err)
		assert.Equal(t, "auro", v)
	})

	t.Run("ArraySlotMustExist", func(t *testing.T) {
		tree := decode(t, `{"inputs": []}`)
		assert.ErrorIs(t, tree.Set("/inputs/0", "x"), ErrBadIndex)
	})

	t.Run("MissingParent", func(t *testing.T) {
		tree := decode(t, `{}`)
		assert.ErrorIs(t, tree.Set("/upmix/select", "auro"), ErrPathNotFound)
	})
}

func TestTreePresence(t *testing.T) {
	tree := NewTree()
	assert.False(t, tree.Present())

	_, err := tree.Get("/volume")
	assert.ErrorIs(t, err, ErrNoState)
	assert.ErrorIs(t, tree.Set("/volume", 0), ErrNoState)

	tree.Replace(map[string]any{"volume": float64(-30)})
	assert.True(t, tree.Present())

	tree.Clear()
	assert.False(t, tree.Present())
	assert.Nil(t, tree.Raw())
}
