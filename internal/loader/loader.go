package loader

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 10 * time.Second

type State int

const (
	NotStarted State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ScriptHost is the page the checkout script is loaded into.
type ScriptHost interface {
	// HasGlobal reports whether the provider's global handle exists.
	HasGlobal(ctx context.Context, name string) (bool, error)
	// InjectScript adds a script element for src and starts loading it.
	InjectScript(ctx context.Context, src string) (Script, error)
}

type Script interface {
	// Loaded yields nil once on the load event or the error event's cause.
	Loaded() <-chan error
	Remove(ctx context.Context) error
}

var ErrTimeout = errors.New("script load timed out")

// Loader makes the provider's checkout script available exactly once.
type Loader struct {
	host    ScriptHost
	src     string
	global  string
	timeout time.Duration
	logger  *zap.Logger

	group singleflight.Group
	mu    sync.Mutex
	state State
}

func New(host ScriptHost, src, global string, timeout time.Duration, logger *zap.Logger) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{host: host, src: src, global: global, timeout: timeout, logger: logger}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// EnsureReady loads the script if needed. Concurrent callers share one load.
// Cancelling ctx abandons only this caller's wait.
func (l *Loader) EnsureReady(ctx context.Context) bool {
	if l.State() == Ready {
		return true
	}
	ch := l.group.DoChan(l.src, func() (interface{}, error) {
		return nil, l.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err == nil
	case <-ctx.Done():
		return false
	}
}

func (l *Loader) load(ctx context.Context) error {
	if l.State() == Ready {
		return nil
	}
	if ok, err := l.host.HasGlobal(ctx, l.global); err == nil && ok {
		l.setState(Ready)
		return nil
	}

	l.setState(Loading)
	l.logger.Debug("injecting checkout script", zap.String("src", l.src))

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	script, err := l.host.InjectScript(ctx, l.src)
	if err != nil {
		l.setState(Failed)
		l.logger.Warn("checkout script injection failed", zap.Error(err))
		return errors.Wrap(err, "inject")
	}

	select {
	case err = <-script.Loaded():
	case <-ctx.Done():
		err = ErrTimeout
	}
	if err == nil {
		if ok, gErr := l.host.HasGlobal(ctx, l.global); gErr != nil || !ok {
			err = errors.Errorf("script loaded but %s is undefined", l.global)
		}
	}
	if err != nil {
		l.setState(Failed)
		l.logger.Warn("checkout script unavailable", zap.String("src", l.src), zap.Error(err))
		if rmErr := script.Remove(context.WithoutCancel(ctx)); rmErr != nil {
			l.logger.Debug("failed script element not removed", zap.Error(rmErr))
		}
		return err
	}

	l.setState(Ready)
	l.logger.Info("checkout script ready", zap.String("src", l.src))
	return nil
}
