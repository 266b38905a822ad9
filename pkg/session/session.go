// Package session ties a launched service, a client connection and one
// registered catalog together.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/launcher"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

var ErrNotRegistered = errors.New("no catalog registered in this session")

type Options struct {
	// address of a running service; when empty one is launched
	Addr   string
	Launch launcher.Options
	Client client.Options

	// use the service's default language options instead of the maximum
	DefaultLanguage bool

	ParseLocationRecordType types.ParseLocationRecordType
	ErrorMessageMode        types.ErrorMessageMode
}

type Session struct {
	Locker sync.RWMutex

	process *launcher.Process
	client  *client.Client

	language_options types.LanguageOptions
	analyzer_options types.AnalyzerOptions

	registered_id int64
	registered    bool
	last_outcome  client.Outcome
}

func (s *Session) GetLocker() *sync.RWMutex { return &s.Locker }

// Open launches the service when needed, connects, and fetches the
// language options later registrations are made with.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{last_outcome: client.OutcomeIdle}

	addr := opts.Addr
	if addr == "" {
		p, err := launcher.Start(ctx, opts.Launch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", client.ErrConnection, err)
		}
		s.process = p
		addr = p.Addr()
	}

	c, err := client.Dial(ctx, addr, opts.Client)
	if err != nil {
		s.stopProcess(ctx)
		return nil, err
	}
	s.client = c

	s.language_options, err = c.LanguageOptions(ctx, !opts.DefaultLanguage)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.analyzer_options = types.AnalyzerOptions{
		ParseLocationRecordType: opts.ParseLocationRecordType,
		ErrorMessageMode:        opts.ErrorMessageMode,
		LanguageOptions:         s.language_options,
	}.Normalized()
	return s, nil
}

func (s *Session) Client() *client.Client { return s.client }

func (s *Session) LanguageOptions() types.LanguageOptions { return s.language_options }

func (s *Session) AnalyzerOptions() types.AnalyzerOptions { return s.analyzer_options }

func (s *Session) RegisteredID() (int64, bool) {
	var id int64
	var ok bool
	pkg.RLockWrap(s, func() { id, ok = s.registered_id, s.registered })
	return id, ok
}

// Register adds the builtin functions under the session's language
// options to cat and registers it, replacing any earlier registration.
func (s *Session) Register(ctx context.Context, cat *catalog.SimpleCatalog) (int64, error) {
	cat.AddBuiltinFunctions(catalog.BuiltinFunctionOptions{LanguageOptions: s.language_options})
	id, err := s.client.RegisterCatalog(ctx, cat)
	if err != nil {
		return 0, err
	}

	previous, had := s.RegisteredID()
	pkg.LockWrap(s, func() { s.registered_id, s.registered = id, true })
	if had {
		if err := s.client.UnregisterCatalog(ctx, previous); err != nil {
			pkg.WarnLog("unregistering catalog", previous, err)
		}
	}
	return id, nil
}

func (s *Session) ExtractTableNames(ctx context.Context, sql string) ([]catalog.TableName, error) {
	return s.client.ExtractTableNames(ctx, sql)
}

// Analyze runs sql against the registered catalog.
func (s *Session) Analyze(ctx context.Context, sql string) (*protocol.AnalyzeResponse, error) {
	id, ok := s.RegisteredID()
	if !ok {
		return nil, fmt.Errorf("%w: %w", client.ErrAnalysis, ErrNotRegistered)
	}

	pkg.LockWrap(s, func() { s.last_outcome = client.OutcomeRequesting })
	res, err := s.client.Analyze(ctx, sql, id, s.analyzer_options)
	outcome := client.InspectAnalyzeError(err).Outcome
	pkg.LockWrap(s, func() { s.last_outcome = outcome })
	return res, err
}

// LastOutcome is the state of the most recent Analyze call.
func (s *Session) LastOutcome() client.Outcome {
	return pkg.RLockGet(s, func() client.Outcome { return s.last_outcome })
}

// Close unregisters the catalog, disconnects, and stops a launched service.
// It returns the first error but always runs every step.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if id, ok := s.RegisteredID(); ok && s.client != nil {
		if err := s.client.UnregisterCatalog(ctx, id); err != nil {
			errs = append(errs, err)
		}
		pkg.LockWrap(s, func() { s.registered = false })
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.stopProcess(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (s *Session) stopProcess(ctx context.Context) error {
	if s.process == nil {
		return nil
	}
	p := s.process
	s.process = nil
	return p.Stop(ctx)
}
