package analyzer

import (
	"fmt"

	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
)

// Error is an analysis failure. Offset is a byte offset into the analyzed
// statement, or -1 when the failure has no position.
type Error struct {
	Message string
	Offset  int
}

func newError(offset int, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Offset: offset}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Location(sql string) *protocol.Location {
	if e.Offset < 0 {
		return nil
	}
	return protocol.LocationAt(sql, e.Offset)
}
