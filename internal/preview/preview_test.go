package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r, err := New(0)
	require.NoError(t, err)

	out, err := r.Render("# Findings\n\nSleep improves **memory** [Smith, 2020].")
	require.NoError(t, err)
	assert.Contains(t, out, "Findings")
	assert.Contains(t, out, "memory")
}

func TestRender_Empty(t *testing.T) {
	r, err := New(40)
	require.NoError(t, err)
	out, err := r.Render("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRender_NilRendererPassesThrough(t *testing.T) {
	var r *Renderer
	out, err := r.Render("plain *text*")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "plain"))
}
