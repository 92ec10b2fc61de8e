package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

func TestTablePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewTablePrinter(&buf)
	p.SetHeaders("Name", "Amount")
	p.AddRow("Alice", FormatAmount(12.5))
	p.AddRow("Bob", FormatAmount(3))
	require.NoError(t, p.Render())

	assert.Equal(t, "NAME    AMOUNT\nAlice   12.50\nBob     3.00\n", buf.String())
}

func TestTablePrinterNoHeaders(t *testing.T) {
	var buf bytes.Buffer
	p := NewTablePrinter(&buf, WithNoHeaders())
	p.SetHeaders("Name")
	p.AddRow("Alice")
	require.NoError(t, p.Render())
	assert.Equal(t, "Alice\n", buf.String())
}

func TestPrinterFormats(t *testing.T) {
	var buf bytes.Buffer
	p := New(OutputTypeYAML)
	p.SetOutput(&buf)
	require.NoError(t, p.Print([]row{{Name: "Alice", Amount: 2}}))
	assert.Equal(t, "- amount: 2\n  name: Alice\n", buf.String())

	buf.Reset()
	p = New(OutputTypeJSON)
	p.SetOutput(&buf)
	require.NoError(t, p.Print(row{Name: "Bob"}))
	assert.JSONEq(t, `{"name":"Bob","amount":0}`, buf.String())

	assert.Error(t, New(OutputTypeTable).Print(row{}))
}

func TestParseOutputType(t *testing.T) {
	for in, want := range map[string]OutputType{"": OutputTypeTable, "JSON": OutputTypeJSON, "yaml": OutputTypeYAML} {
		got, err := ParseOutputType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputType("xml")
	assert.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "a long...", TruncateString("a long description", 9))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "-", EmptyValueOrDefault("", "-"))
}
