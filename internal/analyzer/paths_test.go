package analyzer

import (
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestRewriteMultipartNames(t *testing.T) {
	sql := "select users.id from `sample-shop`.default_dataset.users where name = 'a.b.c'"
	shim := rewriteMultipartNames(sql)

	assert.Equal(t, len(shim.text), len(sql))
	placeholder := "0" + strings.Repeat("_", 26)
	assert.Assert(t, strings.Contains(shim.text, "from `"+placeholder+"`.users"), shim.text)
	assert.Assert(t, strings.HasSuffix(shim.text, "name = 'a.b.c'"))

	assert.DeepEqual(t, shim.tablePath(placeholder, "users"),
		[]string{"sample-shop", "default_dataset", "users"})
	assert.DeepEqual(t, shim.tablePath("", "users"), []string{"users"})
	assert.DeepEqual(t, shim.tablePath("d", "users"), []string{"d", "users"})
	assert.DeepEqual(t, shim.tablePath("", "a.b.c"), []string{"a", "b", "c"})
}

func TestRewriteShortChains(t *testing.T) {
	sql := "select p.d.t.c from p.d.t"
	shim := rewriteMultipartNames(sql)

	assert.Equal(t, shim.text, "select `0__`.c from `1`.t")
	assert.DeepEqual(t, shim.qualifierPath("", "0__"), []string{"p", "d", "t"})
	assert.DeepEqual(t, shim.tablePath("1", "t"), []string{"p", "d", "t"})
}

func TestRewriteSkipsCommentsAndStrings(t *testing.T) {
	sql := "select 'x.y.z' -- a.b.c\n/* d.e.f */ from t"
	shim := rewriteMultipartNames(sql)
	assert.Equal(t, shim.text, sql)
	assert.Equal(t, len(shim.prefixes), 0)
}

func TestFindPath(t *testing.T) {
	sql := "select *\nfrom `sample-shop`.default_dataset.users\nwhere users.id = 1"
	shim := rewriteMultipartNames(sql)

	start, end, ok := shim.findPath([]string{"SAMPLE-SHOP", "default_dataset", "users"}, 0)
	assert.Assert(t, ok)
	assert.Equal(t, sql[start:end], "`sample-shop`.default_dataset.users")

	start, end, ok = shim.findPath([]string{"users", "id"}, 0)
	assert.Assert(t, ok)
	assert.Equal(t, sql[start:end], "users.id")

	start, _, ok = shim.findName("users", start+1)
	assert.Assert(t, !ok, start)
}

func TestFormatPath(t *testing.T) {
	assert.Equal(t, formatPath([]string{"sample-shop", "default_dataset", "users"}),
		"`sample-shop`.default_dataset.users")
	assert.Equal(t, formatPath([]string{"a b"}), "`a b`")
}
