package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/blockstudio/pkg/editor"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimedOut is returned when a script runs past the engine's timeout.
	ErrTimedOut = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose script finished after a
	// newer Evaluate call had started. Only the newest session is handed out.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	session *editor.Session
	errors  []EvalError
	err     error
}

// tickets numbers Evaluate calls. A call keeps its ticket until its result
// arrives; by then a higher ticket may have been issued.
type tickets struct {
	mu   sync.Mutex
	last uint64
}

func (t *tickets) issue() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last++
	return t.last
}

func (t *tickets) latest(ticket uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ticket == t.last
}

// await delivers the result for ticket from ch. A session built for an
// outdated ticket is dropped with ErrSuperseded. A timed-out script keeps
// running in its sandbox goroutine and its late result goes nowhere, since
// ch is buffered and nobody reads it.
func (t *tickets) await(ch <-chan evalResult, ticket uint64, timeout time.Duration) (*editor.Session, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !t.latest(ticket) {
			return nil, nil, ErrSuperseded
		}
		return res.session, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimedOut, timeout)
	}
}
