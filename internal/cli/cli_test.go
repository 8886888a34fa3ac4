package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/codec"
	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleCSV = "CODE LOCAL,NOM,STATUT\nA1,Paris,actif\nA2,Lyon,inactif\nA3,Nantes,actif\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

// execute runs sheetctl with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sheetctl", cmd.Use)

	for _, name := range []string{"columns", "values", "filter", "where", "get", "add", "update", "delete", "convert"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	output := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "table", output.DefValue)

	key := cmd.PersistentFlags().Lookup("key-column")
	require.NotNil(t, key)
	assert.Equal(t, "CODE LOCAL", key.DefValue)
}

func TestInvalidOutput(t *testing.T) {
	path := writeSample(t)
	_, err := execute(t, "-f", path, "-o", "xml", "columns")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestQueries(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "columns",
			args: []string{"columns"},
			want: "CODE LOCAL\nNOM\nSTATUT\n",
		},
		{
			name: "values",
			args: []string{"values", "STATUT"},
			want: "actif\ninactif\n",
		},
		{
			name: "filter",
			args: []string{"filter", "STATUT", "inactif"},
			want: "CODE LOCAL  NOM   STATUT\nA2          Lyon  inactif\n(1 record(s))\n",
		},
		{
			name: "where",
			args: []string{"where", `CODE_LOCAL in ["A1", "A3"]`, "-o", "json"},
			want: `[
  {
    "CODE LOCAL": "A1",
    "NOM": "Paris",
    "STATUT": "actif"
  },
  {
    "CODE LOCAL": "A3",
    "NOM": "Nantes",
    "STATUT": "actif"
  }
]
`,
		},
		{
			name: "get yaml keeps column order",
			args: []string{"get", "A2", "-o", "yaml"},
			want: "CODE LOCAL: A2\nNOM: Lyon\nSTATUT: inactif\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"-f", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	// queries leave the file untouched
	assert.Equal(t, sampleCSV, readFile(t, path))
}

func TestMutations(t *testing.T) {
	path := writeSample(t)

	out, err := execute(t, "-f", path, "-o", "json", "add", "--set", "CODE LOCAL=A4", "--set", "NOM=Brest")
	require.NoError(t, err)
	var rec map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, map[string]string{"CODE LOCAL": "A4", "NOM": "Brest", "STATUT": ""}, rec)

	_, err = execute(t, "-f", path, "update", "A2", "-s", "STATUT=actif", "-s", "CODE LOCAL=A9")
	require.NoError(t, err)

	out, err = execute(t, "-f", path, "-o", "yaml", "delete", "A1")
	require.NoError(t, err)
	var res DeleteResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, DeleteResult{Key: "A1", Deleted: 1}, res)

	out, err = execute(t, "-f", path, "delete", "A1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 0 record(s)\n", out)

	assert.Equal(t, "CODE LOCAL,NOM,STATUT\nA9,Lyon,actif\nA3,Nantes,actif\nA4,Brest,\n", readFile(t, path))
}

func TestMutationErrors(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "duplicate add", args: []string{"add", "--set", "CODE LOCAL=A1"}, code: ExitConflict},
		{name: "empty key", args: []string{"add", "--set", "NOM=x"}, code: ExitUsage},
		{name: "unknown column", args: []string{"add", "--set", "CODE LOCAL=A7", "--set", "VILLE=x"}, code: ExitUsage},
		{name: "bad assignment", args: []string{"add", "--set", "NOM"}, code: ExitUsage},
		{name: "update missing", args: []string{"update", "ZZ", "--set", "NOM=x"}, code: ExitNotFound},
		{name: "rename onto existing", args: []string{"update", "A1", "--set", "CODE LOCAL=A2"}, code: ExitConflict},
		{name: "get missing", args: []string{"get", "ZZ"}, code: ExitNotFound},
		{name: "bad expression", args: []string{"where", "NOM =="}, code: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"-f", path}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ExitCode(err), "error: %v", err)
		})
	}

	assert.Equal(t, sampleCSV, readFile(t, path))
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	noKey := filepath.Join(dir, "nokey.csv")
	require.NoError(t, os.WriteFile(noKey, []byte("NOM\nParis\n"), 0o644))

	_, err := execute(t, "-f", noKey, "columns")
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, Message(err), "IMP002")

	_, err = execute(t, "-f", filepath.Join(dir, "missing.csv"), "columns")
	assert.Equal(t, ExitFailure, ExitCode(err))

	_, err = execute(t, "-f", filepath.Join(dir, "notes.ods"), "columns")
	assert.Equal(t, ExitUsage, ExitCode(err))

	// the key column can be overridden
	out, err := execute(t, "-f", noKey, "-k", "NOM", "get", "Paris", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"NOM":"Paris"}`, out)
}

func TestConvert(t *testing.T) {
	path := writeSample(t)
	xlsx := filepath.Join(filepath.Dir(path), "clients.xlsx")

	out, err := execute(t, "-f", path, "convert", xlsx)
	require.NoError(t, err)
	assert.Equal(t, "wrote 3 record(s) to "+xlsx+"\n", out)

	f, err := os.Open(xlsx)
	require.NoError(t, err)
	defer f.Close()
	tbl, err := codec.NewXLSX().Decode(f)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "Paris", "actif"}, {"A2", "Lyon", "inactif"}, {"A3", "Nantes", "actif"}}, tbl.Rows())

	_, err = execute(t, "-f", path, "convert", xlsx)
	assert.Equal(t, ExitUsage, ExitCode(err), "existing output without --force")

	_, err = execute(t, "-f", path, "convert", "--force", xlsx)
	assert.NoError(t, err)

	_, err = execute(t, "-f", path, "convert", path)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestParseAssignments(t *testing.T) {
	rec, err := parseAssignments([]string{"CODE LOCAL=A1", "NOTE=a=b", "VIDE="})
	require.NoError(t, err)
	assert.Equal(t, "A1", rec["CODE LOCAL"])
	assert.Equal(t, "a=b", rec["NOTE"])
	assert.Equal(t, "", rec["VIDE"])

	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"A=1", "A=2"})
	assert.Error(t, err)
}

func TestLockedFileIsNotEdited(t *testing.T) {
	path := writeSample(t)

	other := &core.Persister{LockTimeout: 50 * time.Millisecond}
	release, err := other.Hold(path)
	require.NoError(t, err)

	_, err = execute(t, "-f", path, "--lock-timeout", "100ms", "add", "--set", "CODE LOCAL=A9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
	assert.Equal(t, sampleCSV, readFile(t, path))

	release()
	_, err = execute(t, "-f", path, "add", "--set", "CODE LOCAL=A9")
	require.NoError(t, err)
	assert.Contains(t, readFile(t, path), "A9")
}
