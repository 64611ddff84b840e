package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
tables:
  - name: users
    identity: id
  - name: addresses
    identity: id
  - name: states
    identity: abbr
joins:
  - name: userAddresses
    from: {table: users, field: address}
    to: addresses
  - name: addressStates
    from: {table: addresses, field: state}
    to: states
logging: {level: error}
seed:
  - {type: file, table: users, path: users.yaml}
  - {type: file, table: addresses, path: addresses.yaml}
  - {type: file, table: states, path: states.yaml}
`

func writeSchema(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"users.yaml":     "- {id: 1, name: Ann, address: 10}\n- {id: 2, name: Bo, address: 10}\n- {id: 3, name: Cy}\n",
		"addresses.yaml": "- {id: 10, state: CA}\n",
		"states.yaml":    "- {abbr: CA, name: California}\n",
		"schema.yaml":    schemaYAML,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	// Seed paths are relative to the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return filepath.Join(dir, "schema.yaml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(nil, &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCheck(t *testing.T) {
	schema := writeSchema(t)
	out, err := run(t, "check", "--schema", schema)
	require.NoError(t, err)
	assert.Regexp(t, `users\s+3`, out)
	assert.Regexp(t, `states\s+1`, out)
	assert.Regexp(t, `userAddresses\s+field-identity\s+users\s+addresses\s+2`, out)

	out, err = run(t, "check", "--schema", schema, "--no-seed")
	require.NoError(t, err)
	assert.Regexp(t, `users\s+0`, out)
}

func TestQuery(t *testing.T) {
	schema := writeSchema(t)
	out, err := run(t, "query", "--schema", schema, "--table", "users",
		"--join", "userAddresses.addressStates", "--limit", "2")
	require.NoError(t, err)

	var items []struct {
		T     string                     `json:"t"`
		ID    int                        `json:"id"`
		Joins map[string]json.RawMessage `json:"$"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ID)
	assert.Contains(t, items[0].Joins, "userAddresses")
	assert.Contains(t, string(items[0].Joins["userAddresses"]), `"California"`)
}

func TestQueryByTableName(t *testing.T) {
	schema := writeSchema(t)
	out, err := run(t, "query", "--schema", schema, "--table", "states", "--join", "addresses.users")
	require.NoError(t, err)
	assert.Contains(t, out, `"Bo"`)
}

func TestFlagsFromEnv(t *testing.T) {
	schema := writeSchema(t)
	t.Setenv("JOINSTORE_SCHEMA", schema)
	out, err := run(t, "query", "--table", "states")
	require.NoError(t, err)
	assert.Contains(t, out, `"California"`)
}

func TestMissingFlags(t *testing.T) {
	_, err := run(t, "check")
	assert.EqualError(t, err, "--schema is required")

	_, err = run(t, "query", "--schema", "schema.yaml")
	assert.EqualError(t, err, "--table is required")
}
