package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// parsers are not safe for concurrent use
var parser_pool = sync.Pool{
	New: func() any {
		p := parser.New()
		p.EnableWindowFunc(true)
		return p
	},
}

var syntax_error_regex = regexp.MustCompile(`(?s)line (\d+) column (\d+) near "(.*)"`)

type parsedStatement struct {
	sql   string
	stmt  ast.StmtNode
	paths *pathShim
}

func parseStatement(sql string) (*parsedStatement, error) {
	shim := rewriteMultipartNames(sql)
	text := shim.text

	if statementEnd(text) == 0 {
		return nil, newError(len(text), "Syntax error: Unexpected end of statement")
	}

	p := parser_pool.Get().(*parser.Parser)
	defer parser_pool.Put(p)

	stmts, _, err := p.ParseSQL(text)
	if err != nil {
		return nil, syntaxError(shim, err)
	}
	if len(stmts) == 0 {
		return nil, newError(len(text), "Syntax error: Unexpected end of statement")
	}
	if len(stmts) > 1 {
		offset := secondStatementOffset(text)
		return nil, newError(offset, "Syntax error: Expected end of input but got %s",
			describeToken(shim, offset))
	}

	return &parsedStatement{sql: sql, stmt: stmts[0], paths: shim}, nil
}

func syntaxError(shim *pathShim, err error) *Error {
	text := shim.text
	m := syntax_error_regex.FindStringSubmatch(err.Error())
	if m == nil {
		return newError(-1, "Syntax error: %s", err.Error())
	}

	near := m[3]
	offset := -1
	switch {
	case strings.TrimSpace(near) == "":
		offset = statementEnd(text)
	case strings.HasSuffix(text, near):
		offset = len(text) - len(near)
	default:
		// long statements get their near text cut short
		offset = strings.Index(text, near)
	}
	if offset < 0 {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		offset = lineColToOffset(text, line, col)
	}

	if offset >= statementEnd(text) {
		return newError(offset, "Syntax error: Unexpected end of statement")
	}
	return newError(offset, "Syntax error: Unexpected %s", describeToken(shim, offset))
}

// statementEnd is the offset just past the last meaningful character,
// ignoring trailing whitespace and semicolons.
func statementEnd(text string) int {
	return len(strings.TrimRight(text, " \t\r\n;"))
}

func lineColToOffset(text string, line, col int) int {
	offset := 0
	for l := 1; l < line && offset < len(text); offset++ {
		if text[offset] == '\n' {
			l++
		}
	}
	return min(offset+max(col-1, 0), len(text))
}

// secondStatementOffset finds where the statement after the first top-level
// semicolon begins.
func secondStatementOffset(text string) int {
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(text, i, c)
		case c == '#' || (c == '-' && strings.HasPrefix(text[i:], "--")):
			i = skipLine(text, i)
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			i = skipBlockComment(text, i)
		case c == ';':
			i++
			for i < len(text) && (isSpace(text[i]) || text[i] == ';') {
				i++
			}
			if i < len(text) {
				return i
			}
		default:
			i++
		}
	}
	return len(text)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// describeToken names the token starting at offset for syntax error messages.
func describeToken(shim *pathShim, offset int) string {
	text := shim.text
	if offset >= len(text) {
		return "end of statement"
	}
	c := text[offset]
	switch {
	case c == '`':
		if seg, ok := shim.firstSegmentAt(offset); ok {
			return `identifier "` + seg + `"`
		}
		seg, _, _ := scanSegment(text, offset)
		return `identifier "` + seg + `"`
	case isIdentStart(c):
		end := offset
		for end < len(text) && isIdentChar(text[end]) {
			end++
		}
		word := text[offset:end]
		if reserved_keywords[strings.ToUpper(word)] {
			return "keyword " + strings.ToUpper(word)
		}
		return `identifier "` + word + `"`
	case isDigit(c):
		end := offset
		for end < len(text) && (isIdentChar(text[end]) || text[end] == '.') {
			end++
		}
		if strings.ContainsAny(text[offset:end], ".eE") {
			return `floating point literal "` + text[offset:end] + `"`
		}
		return `integer literal "` + text[offset:end] + `"`
	case c == '\'' || c == '"':
		end := skipQuoted(text, offset, c)
		return `string literal ` + text[offset:end]
	}
	for _, op := range []string{"<=>", "<=", ">=", "<>", "!=", "||", "&&", "<<", ">>", ":="} {
		if strings.HasPrefix(text[offset:], op) {
			return `"` + op + `"`
		}
	}
	return `"` + string(c) + `"`
}

var reserved_keywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`ALL AND ANY ARRAY AS ASC BETWEEN BY CASE CAST CREATE
		CROSS CURRENT DEFAULT DELETE DESC DISTINCT DROP ELSE END EXCEPT EXISTS EXPLAIN
		FALSE FETCH FOR FROM FULL GROUP HAVING IF IGNORE IN INNER INSERT INTERSECT
		INTERVAL INTO IS JOIN LEFT LIKE LIMIT NATURAL NOT NULL ON OR ORDER OUTER OVER
		PARTITION RECURSIVE RIGHT ROLLUP ROWS SELECT SET SOME TABLE THEN TO TRUE UNION
		UPDATE USING VALUES WHEN WHERE WINDOW WITH`) {
		reserved_keywords[kw] = true
	}
}
