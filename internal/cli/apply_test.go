package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marrow/internal/pipeline"
)

func runApplyCommand(t *testing.T, dbPath string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewApplyCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append(args, "--db", dbPath))
	return buf, cmd.Execute()
}

func TestApplyChangesetGolden(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apply.db")
	buf, err := runApplyCommand(t, dbPath, "testdata/schema", "testdata/changeset.yaml")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "apply_changeset", buf.Bytes())

	db, err := pipeline.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 2, count)

	var orderID int64
	require.NoError(t, db.QueryRow("SELECT order_id FROM order_lines").Scan(&orderID))
	assert.Equal(t, int64(1), orderID, "generated parent key propagated into the dependent row")
}

func TestApplyFailureRollsBack(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apply.db")

	// Update of a row that does not exist fails the whole batch.
	path := writeChangeset(t, `
rows:
  - table: orders
    entries: [{entity: Order, state: added}]
  - table: orders
    entries:
      - entity: Order
        state: modified
        original: {ID: 1777, Code: old}
        current: {ID: 1777, Code: new}
        modified: [Code]
`)

	buf, err := runApplyCommand(t, dbPath, "testdata/schema", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "EXEC_FAILED")

	db, openErr := pipeline.Open(dbPath)
	require.NoError(t, openErr)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestApplyMissingChangeset(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apply.db")
	buf, err := runApplyCommand(t, dbPath, "testdata/schema", "testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "read changeset")
}
