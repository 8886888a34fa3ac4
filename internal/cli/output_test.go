package cli

import (
	"bytes"
	"testing"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_TableCellsStayOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: "table", Writer: &buf}

	err := p.Records([]string{"K", "ADRESSE"}, []core.Record{{"K": "1", "ADRESSE": "1 rue X\nBât\t2"}})
	require.NoError(t, err)
	assert.Equal(t, "K  ADRESSE\n1  1 rue X Bât 2\n(1 record(s))\n", buf.String())
}

func TestPrinter_YAMLKeepsStrings(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: "yaml", Writer: &buf}

	require.NoError(t, p.Record([]string{"REF", "QTE"}, core.Record{"REF": "0012", "QTE": "true"}))
	assert.Equal(t, "REF: \"0012\"\nQTE: \"true\"\n", buf.String())
}

func TestPrinter_EmptyRecordsJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: "json", Writer: &buf}

	require.NoError(t, p.Records([]string{"K"}, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestMessage(t *testing.T) {
	err := &core.KeyNotFoundError{Column: "CODE LOCAL", Key: "ZZ"}
	assert.Equal(t, "key not found: no record with CODE LOCAL \"ZZ\"\n"+
		`No record found with CODE LOCAL "ZZ" (Code: KEY002). Check the key and try again`, Message(err))
	assert.Equal(t, ExitNotFound, ExitCode(err))
	assert.Equal(t, ExitSuccess, ExitCode(nil))
}
