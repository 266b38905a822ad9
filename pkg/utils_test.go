package pkg_test

import (
	"strings"
	"sync"
	"testing"

	. "github.com/tobsdb/sqlanalyzer/pkg"
	"gotest.tools/assert"
)

func TestFilter(t *testing.T) {
	res := Filter([]int{1, 2, 3, 4, 5, 6}, func(i int) bool {
		return i%2 == 0
	})

	assert.DeepEqual(t, res, []int{2, 4, 6})
}

func TestMapSlice(t *testing.T) {
	res := MapSlice([]string{"a", "bb"}, func(s string) int { return len(s) })
	assert.DeepEqual(t, res, []int{1, 2})
}

func TestMapAdd(t *testing.T) {
	m := Map[string, int]{}
	assert.Assert(t, m.Add("a", 1))
	assert.Assert(t, !m.Add("a", 2))
	assert.Equal(t, m.Get("a"), 1)

	_, ok := m.Lookup("b")
	assert.Assert(t, !ok)
}

func TestInsertSortMap(t *testing.T) {
	m := NewInsertSortMap[string, int]()
	m.Push("b", 1)
	m.Push("a", 2)
	m.Push("b", 3)

	assert.Equal(t, m.Len(), 2)
	assert.DeepEqual(t, m.Sorted, []string{"b", "a"})
	assert.DeepEqual(t, m.Values(), []int{3, 2})
	v, ok := m.Lookup("a")
	assert.Assert(t, ok)
	assert.Equal(t, v, 2)
}

type counter struct {
	sync.RWMutex
	n int
}

func (c *counter) GetLocker() *sync.RWMutex { return &c.RWMutex }

func TestLockWrap(t *testing.T) {
	c := &counter{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			LockWrap(c, func() { c.n++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, RLockGet(c, func() int { return c.n }), 50)
}

func TestOffsetToLineCol(t *testing.T) {
	text := "select *\nfrom t\njoin inner u"

	line, col := OffsetToLineCol(text, 0)
	assert.Equal(t, line, 1)
	assert.Equal(t, col, 1)

	line, col = OffsetToLineCol(text, strings.Index(text, "inner"))
	assert.Equal(t, line, 3)
	assert.Equal(t, col, 6)

	line, col = OffsetToLineCol(text, len(text)+10)
	assert.Equal(t, line, 3)
	assert.Equal(t, col, 13)
}

func TestLineAt(t *testing.T) {
	text := "select *\nfrom t\njoin inner u"
	assert.Equal(t, LineAt(text, strings.Index(text, "inner")), "join inner u")
	assert.Equal(t, LineAt(text, 0), "select *")
	assert.Equal(t, LineAt(text, len(text)), "join inner u")
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("DEBUG")
	assert.NilError(t, err)
	assert.Equal(t, level, LogLevelDebug)

	level, err = ParseLogLevel("")
	assert.NilError(t, err)
	assert.Equal(t, level, LogLevelErrOnly)

	_, err = ParseLogLevel("loud")
	assert.ErrorContains(t, err, "invalid log level")
}
