package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/scottsaenz/child-allowance-tracker/internal/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
)

const household = `
children:
  - name: Alice
    age: 9
    weekly_allowance: 5
    chores:
      - name: Dishes
        value: 1.5
      - name: Feed the cat
        value: 0.5
  - name: Bob
    age: 6
chores:
  - name: Rake leaves
    description: Front yard
    value: 3
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(household))
	require.NoError(t, err)
	require.Len(t, f.Children, 2)
	assert.Equal(t, "Alice", f.Children[0].Name)
	assert.InDelta(t, 5.0, f.Children[0].WeeklyAllowance, 1e-9)
	assert.Len(t, f.Children[0].Chores, 2)
	require.Len(t, f.Chores, 1)
	assert.Equal(t, "Front yard", f.Chores[0].Description)

	_, err = Parse([]byte("children: [unterminated"))
	assert.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	f, err := Parse([]byte(`{"children":[{"name":"Cara","weekly_allowance":2}]}`))
	require.NoError(t, err)
	require.Len(t, f.Children, 1)
	assert.Equal(t, "Cara", f.Children[0].Name)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tracker := service.NewTrackerService(internaldb.NewMemory())
	f, err := Parse([]byte(household))
	require.NoError(t, err)

	res, err := Import(ctx, tracker, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{ChildrenCreated: 2, ChoresCreated: 3}, res)

	res, err = Import(ctx, tracker, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{ChildrenSkipped: 2, ChoresSkipped: 3}, res)

	children, err := tracker.ListChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 2)
	chores, err := tracker.ListChores(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, chores, 3)
}

func TestImportSkipsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	tracker := service.NewTrackerService(internaldb.NewMemory())

	res, err := Import(ctx, tracker, &File{
		Children: []Child{{Name: "", Chores: []Chore{{Name: "Dishes"}}}, {Name: "Dana"}},
		Chores:   []Chore{{Name: ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChildrenCreated)
	assert.Equal(t, 1, res.ChildrenSkipped)
	assert.Equal(t, 0, res.ChoresCreated)
	assert.Equal(t, 2, res.ChoresSkipped)
}

func TestImportFromPath(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "household.yaml")
	require.NoError(t, os.WriteFile(path, []byte(household), 0o600))
	res, err := ImportFromPath(ctx, service.NewTrackerService(internaldb.NewMemory()), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChildrenCreated)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/household.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(household))
	}))
	defer srv.Close()

	res, err = ImportFromPath(ctx, service.NewTrackerService(internaldb.NewMemory()), srv.URL+"/household.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChoresCreated)

	_, err = ImportFromPath(ctx, service.NewTrackerService(internaldb.NewMemory()), srv.URL+"/missing.yaml")
	assert.Error(t, err)

	_, err = ImportFromPath(ctx, service.NewTrackerService(internaldb.NewMemory()), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
