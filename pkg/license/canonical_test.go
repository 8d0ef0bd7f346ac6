package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeysAndExcludes(t *testing.T) {
	doc := map[string]any{
		"zeta":      1,
		"alpha":     "x",
		"signature": "should-be-excluded",
	}
	out, err := CanonicalJSON(doc, "signature")
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","zeta":1}`, string(out))
}

func TestCanonicalJSONDeterministic(t *testing.T) {
	doc := map[string]any{"b": 2, "a": 1, "c": 3}
	first, err := CanonicalJSON(doc)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := CanonicalJSON(doc)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCanonicalJSONNoHTMLEscaping(t *testing.T) {
	doc := map[string]any{"url": "a<b>&c"}
	out, err := CanonicalJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"url":"a<b>&c"}`, string(out))
}
