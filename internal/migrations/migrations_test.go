package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_EmbedsExportSchema(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, ident, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_chart_exports", ident)

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS chart_exports"))
	assert.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS chart_cells"))

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	defer down.Close()
}
