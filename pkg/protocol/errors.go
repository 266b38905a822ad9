package protocol

import (
	"fmt"
	"strings"

	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

func LocationAt(sql string, offset int) *Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(sql) {
		offset = len(sql)
	}
	line, col := pkg.OffsetToLineCol(sql, offset)
	return &Location{Line: line, Column: col, Offset: offset}
}

// FormatErrorDetail renders an error message for the given mode.
// ONE_LINE:               msg [at L:C]
// MULTI_LINE_WITH_CARET:  msg [at L:C], the source line, a caret under column C
// WITH_PAYLOAD:           msg, the location travels separately
func FormatErrorDetail(message, sql string, loc *Location, mode types.ErrorMessageMode) string {
	if loc == nil || mode == types.ErrorMessageWithPayload {
		return message
	}
	detail := fmt.Sprintf("%s [at %d:%d]", message, loc.Line, loc.Column)
	if mode != types.ErrorMessageMultiLineWithCaret {
		return detail
	}
	line := pkg.LineAt(sql, loc.Offset)
	caret := strings.Repeat(" ", max(loc.Column-1, 0)) + "^"
	return detail + "\n" + line + "\n" + caret
}
