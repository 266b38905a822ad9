package analyzer

import (
	"strconv"
	"strings"
)

// identChain is one dotted identifier chain as written in the statement,
// e.g. `sample-shop`.default_dataset.users.
type identChain struct {
	segments []string
	starts   []int
	ends     []int
}

func (c identChain) start() int { return c.starts[0] }
func (c identChain) end() int   { return c.ends[len(c.ends)-1] }

// pathShim rewrites identifier chains of three or more segments so the
// parser, which only knows schema.table, accepts them. All but the last
// segment are replaced by one quoted placeholder of the same byte length,
// so every offset in the rewritten text is also an offset in the original.
type pathShim struct {
	text   string
	chains []identChain
	// placeholder -> leading segments it stands for
	prefixes map[string][]string
	// placeholder -> chain it was taken from
	origins map[string]identChain
}

func rewriteMultipartNames(sql string) *pathShim {
	shim := &pathShim{
		prefixes: map[string][]string{},
		origins:  map[string]identChain{},
	}
	buf := []byte(sql)

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"':
			i = skipQuoted(sql, i, c)
		case c == '#' || (c == '-' && strings.HasPrefix(sql[i:], "--")):
			i = skipLine(sql, i)
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			i = skipBlockComment(sql, i)
		case c == '`' || isIdentStart(c):
			chain, next := scanChain(sql, i)
			if len(chain.segments) >= 3 {
				shim.replace(buf, chain)
			}
			shim.chains = append(shim.chains, chain)
			i = next
		case isDigit(c):
			for i < len(sql) && (isIdentChar(sql[i]) || sql[i] == '.') {
				i++
			}
		default:
			i++
		}
	}

	shim.text = string(buf)
	return shim
}

func (shim *pathShim) replace(buf []byte, chain identChain) {
	last := len(chain.starts) - 1
	start := chain.starts[0]
	// stop before the dot preceding the last segment
	end := chain.starts[last] - 1
	width := end - start

	token := strconv.FormatInt(int64(len(shim.prefixes)), 36)
	if len(token)+2 > width {
		return
	}
	placeholder := token + strings.Repeat("_", width-2-len(token))
	copy(buf[start:end], "`"+placeholder+"`")
	shim.prefixes[placeholder] = chain.segments[:last]
	shim.origins[placeholder] = chain
}

// tablePath restores the full path of a table name as seen by the parser.
func (shim *pathShim) tablePath(schema, name string) []string {
	if schema == "" {
		return splitSegment(name)
	}
	if prefix, ok := shim.prefixes[schema]; ok {
		return append(append([]string{}, prefix...), splitSegment(name)...)
	}
	return append(splitSegment(schema), splitSegment(name)...)
}

// qualifierPath restores the path qualifying a column reference.
func (shim *pathShim) qualifierPath(schema, table string) []string {
	if table == "" {
		return nil
	}
	if prefix, ok := shim.prefixes[table]; ok {
		return append([]string{}, prefix...)
	}
	return shim.tablePath(schema, table)
}

// findPath locates the first chain holding path as consecutive segments at
// or after from. Returns the byte span covering those segments.
func (shim *pathShim) findPath(path []string, from int) (start, end int, ok bool) {
	if len(path) == 0 {
		return 0, 0, false
	}
	for _, chain := range shim.chains {
		if chain.start() < from {
			continue
		}
		segments := chain.segments
		// a single quoted segment may hold a whole dotted path
		if len(segments) == 1 && len(path) > 1 {
			if strings.EqualFold(segments[0], strings.Join(path, ".")) {
				return chain.start(), chain.end(), true
			}
			continue
		}
		for k := 0; k+len(path) <= len(segments); k++ {
			if segmentsEqual(segments[k:k+len(path)], path) {
				return chain.starts[k], chain.ends[k+len(path)-1], true
			}
		}
	}
	return 0, 0, false
}

// findName locates the first identifier segment equal to name.
func (shim *pathShim) findName(name string, from int) (start, end int, ok bool) {
	for _, chain := range shim.chains {
		for k, seg := range chain.segments {
			if chain.starts[k] >= from && strings.EqualFold(seg, name) {
				return chain.starts[k], chain.ends[k], true
			}
		}
	}
	return 0, 0, false
}

// firstSegmentAt returns the original first segment when offset starts a
// rewritten chain.
func (shim *pathShim) firstSegmentAt(offset int) (string, bool) {
	for _, chain := range shim.origins {
		if chain.start() == offset {
			return chain.segments[0], true
		}
	}
	return "", false
}

func segmentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func splitSegment(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// formatPath renders a path the way it would be written, quoting segments
// that are not plain identifiers.
func formatPath(path []string) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		if isPlainIdent(seg) {
			parts[i] = seg
		} else {
			parts[i] = "`" + strings.ReplaceAll(seg, "`", "``") + "`"
		}
	}
	return strings.Join(parts, ".")
}

func scanChain(sql string, i int) (identChain, int) {
	var chain identChain
	for {
		seg, start, next := scanSegment(sql, i)
		chain.segments = append(chain.segments, seg)
		chain.starts = append(chain.starts, start)
		chain.ends = append(chain.ends, next)
		i = next
		if i+1 < len(sql) && sql[i] == '.' && (sql[i+1] == '`' || isIdentStart(sql[i+1])) {
			i++
			continue
		}
		return chain, i
	}
}

func scanSegment(sql string, i int) (seg string, start, next int) {
	start = i
	if sql[i] != '`' {
		for i < len(sql) && isIdentChar(sql[i]) {
			i++
		}
		return sql[start:i], start, i
	}

	var b strings.Builder
	i++
	for i < len(sql) {
		if sql[i] == '`' {
			if i+1 < len(sql) && sql[i+1] == '`' {
				b.WriteByte('`')
				i += 2
				continue
			}
			return b.String(), start, i + 1
		}
		b.WriteByte(sql[i])
		i++
	}
	// unterminated, let the parser report it
	return b.String(), start, i
}

func skipQuoted(sql string, i int, quote byte) int {
	for i++; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			i++
		case quote:
			if i+1 < len(sql) && sql[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

func skipLine(sql string, i int) int {
	if j := strings.IndexByte(sql[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(sql)
}

func skipBlockComment(sql string, i int) int {
	if j := strings.Index(sql[i+2:], "*/"); j >= 0 {
		return i + 2 + j + 2
	}
	return len(sql)
}

func isDigit(c byte) bool      { return '0' <= c && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80 }
func isIdentChar(c byte) bool  { return isIdentStart(c) || isDigit(c) }

func isPlainIdent(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) || s[i] == '$' || s[i] >= 0x80 {
			return false
		}
	}
	return true
}
