package registry_test

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"
	"time"

	. "github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"gotest.tools/assert"
)

func newCatalog(t *testing.T, project string) *catalog.SimpleCatalog {
	cat, err := catalog.Build(project, "d", []catalog.TableSpec{
		{Name: "users", Columns: []catalog.ColumnSpec{{Name: "id", Type: "INT64"}}},
	})
	assert.NilError(t, err)
	return cat
}

func newMemRegistry(t *testing.T) *Registry {
	ws, err := NewWriteSettings("", true, 0)
	assert.NilError(t, err)
	r, err := New(ws)
	assert.NilError(t, err)
	return r
}

func TestNewWriteSettings(t *testing.T) {
	_, err := NewWriteSettings("", false, 100)
	assert.ErrorContains(t, err, "state dir")

	ws, err := NewWriteSettings("/tmp/x", false, 0)
	assert.NilError(t, err)
	assert.Equal(t, ws.WriteInterval, time.Second)
}

func TestRegister(t *testing.T) {
	r := newMemRegistry(t)

	first, err := r.Register(newCatalog(t, "a"))
	assert.NilError(t, err)
	second, err := r.Register(newCatalog(t, "b"))
	assert.NilError(t, err)
	assert.Equal(t, first, int64(1))
	assert.Equal(t, second, int64(2))

	cat, ok := r.Get(first)
	assert.Assert(t, ok)
	assert.Assert(t, cat.FindTable([]string{"a", "d", "users"}) != nil)

	_, ok = r.Get(42)
	assert.Assert(t, !ok)

	_, err = r.Register(nil)
	assert.Assert(t, errors.Is(err, ErrInvalidCatalog))
}

func TestRegisterInvalidCatalog(t *testing.T) {
	r := newMemRegistry(t)
	cat := catalog.NewSimpleCatalog(catalog.RootName)
	project, err := cat.AddSimpleCatalog("p")
	assert.NilError(t, err)
	project.Tables = append(project.Tables, &catalog.SimpleTable{Name: ""})

	_, err = r.Register(cat)
	assert.Assert(t, errors.Is(err, ErrInvalidCatalog), err)
	assert.Equal(t, r.Len(), 0)
}

func TestUnregister(t *testing.T) {
	r := newMemRegistry(t)
	id, err := r.Register(newCatalog(t, "a"))
	assert.NilError(t, err)

	assert.Assert(t, r.Unregister(id))
	assert.Assert(t, !r.Unregister(id))
	_, ok := r.Get(id)
	assert.Assert(t, !ok)

	// ids are not reused
	next, err := r.Register(newCatalog(t, "b"))
	assert.NilError(t, err)
	assert.Equal(t, next, id+1)
}

func TestList(t *testing.T) {
	r := newMemRegistry(t)
	assert.Equal(t, len(r.List()), 0)

	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Register(newCatalog(t, name))
		assert.NilError(t, err)
	}
	r.Unregister(2)

	list := r.List()
	assert.Equal(t, len(list), 2)
	assert.Equal(t, list[0].ID, int64(1))
	assert.Equal(t, list[1].ID, int64(3))
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	ws, err := NewWriteSettings(dir, false, 10)
	assert.NilError(t, err)

	r, err := New(ws)
	assert.NilError(t, err)
	_, err = r.Register(newCatalog(t, "a"))
	assert.NilError(t, err)
	_, err = r.Register(newCatalog(t, "b"))
	assert.NilError(t, err)
	assert.Assert(t, r.Unregister(1))
	assert.NilError(t, r.WriteToFile())

	_, err = os.Stat(path.Join(dir, "meta.json"))
	assert.NilError(t, err)
	_, err = os.Stat(path.Join(dir, "catalogs", "2.json"))
	assert.NilError(t, err)

	loaded, err := New(ws)
	assert.NilError(t, err)
	assert.Equal(t, loaded.Len(), 1)
	assert.Equal(t, loaded.NextID(), int64(3))
	cat, ok := loaded.Get(2)
	assert.Assert(t, ok)
	assert.Assert(t, cat.FindTable([]string{"b", "d", "users"}) != nil)
}

func TestRunFlushesOnShutdown(t *testing.T) {
	dir := t.TempDir()
	ws, err := NewWriteSettings(dir, false, 60_000)
	assert.NilError(t, err)
	r, err := New(ws)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	_, err = r.Register(newCatalog(t, "a"))
	assert.NilError(t, err)
	cancel()
	assert.NilError(t, <-done)

	_, err = os.Stat(path.Join(dir, "catalogs", "1.json"))
	assert.NilError(t, err)
}

func TestInMemNeverWrites(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(newCatalog(t, "a"))
	assert.NilError(t, err)
	assert.NilError(t, r.WriteToFile())
}
