package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"github.com/rzpsarthak13/joinstore/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()

	yamlPath := writeFile(t, "users.yaml", `
- id: 100
  name: Ann
- id: 101
  name: Bo
  tags: [a, b]
`)
	recs, err := NewFileSource(yamlPath).Fetch(ctx)
	require.NoError(t, err)
	want := []core.Record{
		{"id": 100, "name": "Ann"},
		{"id": 101, "name": "Bo", "tags": []interface{}{"a", "b"}},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("yaml records mismatch (-want +got):\n%s", diff)
	}

	jsonPath := writeFile(t, "users.json", `[{"id": 100, "name": "Ann"}]`)
	recs, err = NewFileSource(jsonPath).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{"id": float64(100), "name": "Ann"}}, recs)

	_, err = NewFileSource(writeFile(t, "users.txt", "id: 1")).Fetch(ctx)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	_, err = NewFileSource(writeFile(t, "holes.yaml", "- id: 1\n-\n")).Fetch(ctx)
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(ctx)
	assert.Error(t, err)
}

type fakeRows struct {
	columns []string
	rows    [][]interface{}
	pos     int
	closed  bool
}

func (f *fakeRows) Columns() ([]string, error) { return f.columns, nil }

func (f *fakeRows) Next() bool {
	f.pos++
	return f.pos <= len(f.rows)
}

func (f *fakeRows) Scan(dest ...interface{}) error {
	for i, v := range f.rows[f.pos-1] {
		*dest[i].(*interface{}) = v
	}
	return nil
}

func (f *fakeRows) Err() error   { return nil }
func (f *fakeRows) Close() error { f.closed = true; return nil }

func TestScanRows(t *testing.T) {
	rows := &fakeRows{
		columns: []string{"id", "name", "age"},
		rows: [][]interface{}{
			{int64(100), []byte("Ann"), []byte("30")},
			{int64(101), []byte("Bo"), nil},
		},
	}
	sch := &core.Schema{Columns: []core.Column{{Name: "age", Type: "INT"}}}

	recs, err := scanRows(rows, schema.NewTranslator(), sch)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	assert.Equal(t, []core.Record{
		{"id": int64(100), "name": "Ann", "age": int64(30)},
		{"id": int64(101), "name": "Bo", "age": nil},
	}, recs)
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(registry.InternalMySQLConfig{
		Host:     "db.internal",
		Database: "people",
		Username: "reader",
		Password: "secret",
	})
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
	assert.Equal(t, "people", cfg.DBName)
	assert.Equal(t, "reader", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestNewMySQLSourceNeedsTable(t *testing.T) {
	_, err := NewMySQLSource(context.Background(), registry.InternalMySQLConfig{Host: "localhost"}, nil, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

type fakeScanner struct {
	pages [][]map[string]types.AttributeValue
	calls int
	err   error
}

func (f *fakeScanner) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.calls
	f.calls++
	out := &dynamodb.ScanOutput{Items: f.pages[page]}
	if page+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func item(id, state string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":    &types.AttributeValueMemberS{Value: id},
		"state": &types.AttributeValueMemberS{Value: state},
		"zip":   &types.AttributeValueMemberN{Value: "94110"},
	}
}

func TestDynamoDBSource(t *testing.T) {
	scanner := &fakeScanner{pages: [][]map[string]types.AttributeValue{
		{item("a1", "CA")},
		{item("a2", "OR"), item("a3", "WA")},
	}}
	src, err := NewDynamoDBSourceWithClient(scanner, "addresses", nil)
	require.NoError(t, err)

	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, scanner.calls)
	require.Len(t, recs, 3)
	assert.Equal(t, core.Record{"id": "a2", "state": "OR", "zip": float64(94110)}, recs[1])

	_, err = NewDynamoDBSourceWithClient(scanner, "", nil)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	failing, err := NewDynamoDBSourceWithClient(&fakeScanner{err: errors.New("throttled")}, "addresses", nil)
	require.NoError(t, err)
	_, err = failing.Fetch(context.Background())
	assert.Error(t, err)
}

type staticSource struct {
	recs   []core.Record
	err    error
	closed bool
}

func (s *staticSource) Fetch(context.Context) ([]core.Record, error) { return s.recs, s.err }
func (s *staticSource) Close() error                                  { s.closed = true; return nil }

type recordingTarget struct {
	loads []string
	sizes map[string]int
}

func (r *recordingTarget) Load(table string, recs []core.Record) error {
	if r.sizes == nil {
		r.sizes = make(map[string]int)
	}
	r.loads = append(r.loads, table)
	r.sizes[table] = len(recs)
	return nil
}

func TestLoader(t *testing.T) {
	users := &staticSource{recs: []core.Record{{"id": 1}, {"id": 2}}}
	states := &staticSource{recs: []core.Record{{"abbr": "CA"}}}
	target := &recordingTarget{}

	err := NewLoader(nil).Load(context.Background(), target, []Entry{
		{Table: "users", Source: users},
		{Table: "states", Source: states},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "states"}, target.loads)
	assert.Equal(t, map[string]int{"users": 2, "states": 1}, target.sizes)
	assert.True(t, users.closed)
	assert.True(t, states.closed)
}

func TestLoaderFetchFailureLoadsNothing(t *testing.T) {
	target := &recordingTarget{}
	broken := &staticSource{err: errors.New("unreachable")}

	err := NewLoader(nil).Load(context.Background(), target, []Entry{
		{Table: "users", Source: &staticSource{recs: []core.Record{{"id": 1}}}},
		{Table: "states", Source: broken},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed states")
	assert.Empty(t, target.loads)
	assert.True(t, broken.closed)
}

func TestSeedValidation(t *testing.T) {
	base := `
tables:
  - name: users
    identity: id
seed:
`
	tests := []struct {
		name    string
		seed    string
		wantErr bool
	}{
		{"file", "  - {type: file, table: users, path: users.yaml}", false},
		{"file without path", "  - {type: file, table: users}", true},
		{"file with unknown extension", "  - {type: file, table: users, path: users.csv}", true},
		{"mysql", "  - {type: mysql, table: users, mysql: {host: db, database: people}}", false},
		{"mysql without database", "  - {type: mysql, table: users, mysql: {host: db}}", true},
		{"dynamodb", "  - {type: dynamodb, table: users, dynamodb: {region: us-east-1, table_name: users}}", false},
		{"dynamodb without region", "  - {type: dynamodb, table: users, dynamodb: {table_name: users}}", true},
		{"unknown table", "  - {type: file, table: ghosts, path: g.yaml}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.NewConfigManager().LoadFromYAML([]byte(base + tt.seed + "\n"))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open(context.Background(), registry.InternalSeedConfig{Type: "csv"}, nil, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}
