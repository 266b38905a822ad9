package client

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrConnection     = errors.New("sqlanalyzer connection failed")
	ErrRegistration   = errors.New("catalog registration failed")
	ErrExtraction     = errors.New("table name extraction failed")
	ErrAnalysis       = errors.New("analysis failed")
	ErrUnparsedDetail = errors.New("error detail has no location")
)

// Error is a failure reported by the service.
type Error struct {
	Code    codes.Code
	Details string
	// set when the service attached a position
	Location *protocol.Location
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Details) }

// GRPCStatus lets status.Code and status.FromError see the service code.
func (e *Error) GRPCStatus() *status.Status { return status.New(e.Code, e.Details) }

func responseError(res protocol.RawResponse) error {
	if res.Code == codes.OK {
		return nil
	}
	return &Error{Code: res.Code, Details: res.Message, Location: res.Location}
}

var error_detail_regex = regexp.MustCompile(`(.*?) \[at (\d+):(\d+)\]`)

// ErrorDetail is a service error message with a 0-based position.
type ErrorDetail struct {
	Message string
	Line    int
	Column  int
}

type UnparsedDetailError struct {
	Detail string
}

func (e *UnparsedDetailError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnparsedDetail, e.Detail)
}

func (e *UnparsedDetailError) Is(target error) bool { return target == ErrUnparsedDetail }

// ParseErrorDetail splits "message [at L:C]" into the message and a 0-based
// line and column.
func ParseErrorDetail(detail string) (ErrorDetail, error) {
	m := error_detail_regex.FindStringSubmatch(detail)
	if m == nil {
		return ErrorDetail{}, &UnparsedDetailError{Detail: detail}
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return ErrorDetail{}, &UnparsedDetailError{Detail: detail}
	}
	col, err := strconv.Atoi(m[3])
	if err != nil {
		return ErrorDetail{}, &UnparsedDetailError{Detail: detail}
	}
	return ErrorDetail{Message: m[1], Line: line - 1, Column: col - 1}, nil
}

// Outcome is the state of one analyze call.
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeRequesting
	OutcomeSucceeded
	// the failure carries a message and a position
	OutcomeFailedParsed
	// anything else, including failures whose detail has no position
	OutcomeFailedRaw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeRequesting:
		return "requesting"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailedParsed:
		return "failed"
	case OutcomeFailedRaw:
		return "failed (raw)"
	}
	return "unknown"
}

type AnalyzeFailure struct {
	Outcome Outcome
	Code    codes.Code
	// valid when Outcome is OutcomeFailedParsed
	Detail ErrorDetail
	// the unparsed failure text
	Raw string
}

// InspectAnalyzeError classifies the error returned by Analyze. A nil err
// is OutcomeSucceeded.
func InspectAnalyzeError(err error) AnalyzeFailure {
	if err == nil {
		return AnalyzeFailure{Outcome: OutcomeSucceeded, Code: codes.OK}
	}

	var e *Error
	if !errors.As(err, &e) {
		return AnalyzeFailure{Outcome: OutcomeFailedRaw, Code: status.Code(err), Raw: err.Error()}
	}
	failure := AnalyzeFailure{Outcome: OutcomeFailedRaw, Code: e.Code, Raw: e.Details}
	if e.Code != codes.InvalidArgument {
		return failure
	}

	if detail, perr := ParseErrorDetail(e.Details); perr == nil {
		failure.Outcome, failure.Detail = OutcomeFailedParsed, detail
		return failure
	}
	if e.Location != nil {
		failure.Outcome = OutcomeFailedParsed
		failure.Detail = ErrorDetail{
			Message: e.Details,
			Line:    e.Location.Line - 1,
			Column:  e.Location.Column - 1,
		}
	}
	return failure
}
