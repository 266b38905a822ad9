// Package launcher starts a sqlanalyzer service and waits until it answers
// health checks. The service runs either inside the calling process or as
// an external binary.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tobsdb/sqlanalyzer/internal/conn"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultReadyTimeout = 10 * time.Second
)

var ErrNotReady = errors.New("sqlanalyzer service did not become ready")

type Options struct {
	Host string
	// 0 picks a free port
	Port int
	// empty runs the service in this process
	Binary string
	// extra arguments for Binary, after `serve --host H --port N`
	Args []string
	// in-process only; empty keeps the registry in memory
	StateDir      string
	WriteInterval time.Duration
	ReadyTimeout  time.Duration
	Version       string
}

// Process is a started service. Stop must be called to release it.
type Process struct {
	addr string

	// in-process
	cancel context.CancelFunc
	done   chan error

	// external binary
	cmd *exec.Cmd
}

func (p *Process) Addr() string { return p.addr }

func Start(ctx context.Context, opts Options) (*Process, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}

	var p *Process
	var err error
	if opts.Binary == "" {
		p, err = startInProcess(opts)
	} else {
		p, err = startBinary(opts)
	}
	if err != nil {
		return nil, err
	}

	if err := WaitReady(ctx, p.addr, opts.ReadyTimeout); err != nil {
		p.Stop(context.Background())
		return nil, err
	}
	pkg.InfoLog("sqlanalyzer service ready at", p.addr)
	return p, nil
}

func startInProcess(opts Options) (*Process, error) {
	ws, err := registry.NewWriteSettings(opts.StateDir, opts.StateDir == "", int(opts.WriteInterval/time.Millisecond))
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(ws)
	if err != nil {
		return nil, err
	}

	l, err := net.Listen("tcp", net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Process{addr: l.Addr().String(), cancel: cancel, done: make(chan error, 1)}
	server := conn.NewServer(reg, opts.Version)
	go func() { p.done <- server.Serve(ctx, l) }()
	return p, nil
}

func startBinary(opts Options) (*Process, error) {
	port := opts.Port
	if port == 0 {
		free, err := freePort(opts.Host)
		if err != nil {
			return nil, err
		}
		port = free
	}

	args := append([]string{"serve", "--host", opts.Host, "--port", strconv.Itoa(port)}, opts.Args...)
	cmd := exec.Command(opts.Binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", opts.Binary, err)
	}
	pkg.DebugLog("started", opts.Binary, "with pid", cmd.Process.Pid)

	p := &Process{addr: net.JoinHostPort(opts.Host, strconv.Itoa(port)), cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()
	return p, nil
}

func freePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitReady polls http://addr/health with exponential backoff until it
// answers 200 or timeout passes.
func WaitReady(ctx context.Context, addr string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	url := "http://" + addr + "/health"

	backoff := retry.NewExponential(20 * time.Millisecond)
	backoff = retry.WithCappedDuration(500*time.Millisecond, backoff)
	backoff = retry.WithMaxDuration(timeout, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("health check returned %d", res.StatusCode))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrNotReady, addr, err)
	}
	return nil
}

// Stop shuts the service down. An external process that has not exited when
// ctx is done is killed.
func (p *Process) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
		select {
		case err := <-p.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	select {
	case err := <-p.done:
		var exit_err *exec.ExitError
		if errors.As(err, &exit_err) {
			pkg.DebugLog("service exited:", exit_err)
			return nil
		}
		return err
	case <-ctx.Done():
		p.cmd.Process.Kill()
		<-p.done
		return ctx.Err()
	}
}
