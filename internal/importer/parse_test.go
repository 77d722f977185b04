package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "persondb/pkg/domain-errors"
)

func TestParseCSV(t *testing.T) {
	t.Run("strips the BOM and pads short rows", func(t *testing.T) {
		input := "\uFEFFName,Email,Phone\n" +
			"Juan Dela Cruz,juan@example.com,0917-555-0101\n" +
			"Maria Santos,maria@example.com\n"
		rows, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, []string{"Name", "Email", "Phone"}, rows[0].Columns)
		assert.Equal(t, "Juan Dela Cruz", rows[0].Get("Name"))
		assert.Equal(t, "maria@example.com", rows[1].Get("Email"))
		assert.Equal(t, "", rows[1].Get("Phone"))
	})

	t.Run("trims cell whitespace", func(t *testing.T) {
		rows, err := ParseCSV(strings.NewReader("Name\n  Juan  \n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Juan", rows[0].Get("Name"))
	})

	t.Run("empty input is a parse error", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})
}

func TestParseDispatch(t *testing.T) {
	t.Run("csv by extension", func(t *testing.T) {
		rows, err := Parse("People.CSV", strings.NewReader("Name\nJuan\n"), "")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Parse("people.pdf", strings.NewReader("x"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedFile))
	})

	t.Run("garbage workbook bytes", func(t *testing.T) {
		_, err := Parse("people.xlsx", strings.NewReader("not a zip archive"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})
}

func TestRowIsEmpty(t *testing.T) {
	row := Row{Columns: []string{"a", "b"}, Values: map[string]string{"a": "  ", "b": ""}}
	assert.True(t, row.IsEmpty())
	row.Values["b"] = "x"
	assert.False(t, row.IsEmpty())
}
