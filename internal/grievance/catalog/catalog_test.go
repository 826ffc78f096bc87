package catalog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pmkisan/pkg/domain-errors"
)

func TestParse(t *testing.T) {
	t.Run("keeps file order", func(t *testing.T) {
		c, err := Parse([]byte(`{"Zeta":"Z1","Alpha":"A1","Mid":"M1"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, c.Labels())
		assert.Equal(t, 3, c.Len())
	})

	t.Run("tolerates comments and trailing commas", func(t *testing.T) {
		c, err := Parse([]byte(`{
			// payments
			"Payment not received": "PAY01", /* block */
			"Aadhaar correction": "AAD02",
		}`))
		require.NoError(t, err)
		code, ok := c.Code("Aadhaar correction")
		assert.True(t, ok)
		assert.Equal(t, "AAD02", code)
	})

	t.Run("repeated label keeps first position", func(t *testing.T) {
		c, err := Parse([]byte(`{"A":"1","B":"2","A":"3"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, c.Labels())
		code, _ := c.Code("A")
		assert.Equal(t, "3", code)
	})

	for name, input := range map[string]string{
		"array":            `["a","b"]`,
		"string":           `"a"`,
		"number value":     `{"A":1}`,
		"nested value":     `{"A":{"b":"c"}}`,
		"truncated":        `{"A":"1"`,
		"trailing garbage": `{"A":"1"} {}`,
		"empty input":      ``,
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestCodeIsExact(t *testing.T) {
	c := New(Pair{Label: "Payment not received", Code: "PAY01"})

	_, ok := c.Code("payment not received")
	assert.False(t, ok)
	_, ok = c.Code("Payment not received ")
	assert.False(t, ok)
	code, ok := c.Code("Payment not received")
	assert.True(t, ok)
	assert.Equal(t, "PAY01", code)
}

func TestLabelsIsACopy(t *testing.T) {
	c := New(Pair{Label: "A", Code: "1"})
	labels := c.Labels()
	labels[0] = "mutated"
	assert.Equal(t, []string{"A"}, c.Labels())
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Labels())
	_, ok := c.Code("A")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "types.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"A":"1"}`), 0o600))
		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, c.Labels())
	})

	t.Run("missing file is a configuration error", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("LoadOrEmpty logs and returns empty catalog", func(t *testing.T) {
		var buf bytes.Buffer
		c := LoadOrEmpty(filepath.Join(dir, "missing.json"), slog.New(slog.NewTextHandler(&buf, nil)))
		assert.Equal(t, 0, c.Len())
		assert.Contains(t, buf.String(), "failed to load grievance mapping")
	})

	t.Run("bundled asset parses", func(t *testing.T) {
		c, err := Load(filepath.Join("..", "..", "..", "assets", "grievance_types.json"))
		require.NoError(t, err)
		assert.Positive(t, c.Len())
	})
}
