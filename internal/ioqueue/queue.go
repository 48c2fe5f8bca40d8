// Package ioqueue implements the single background worker that serializes
// blocking filesystem mutations off of the caller's goroutine, per §4.8 and
// the Open Question in §9: "an implementer may omit it and do those
// operations inline if measurements show no benefit" — this implementation
// keeps the queue, because the Importer's fan-out (§4.5) is exactly the kind
// of concurrent mkdir/link storm the original author worried about
// serializing.
//
// Grounded on the teacher's asyncCache worker
// (`internal/cache/async_cache.go`): one goroutine draining a channel,
// a `done` channel closed by the worker for shutdown. Each submitted task carries its own
// one-shot reply channel, the Go rendition of the spec's "senders get a
// one-shot receiver per submitted task".
package ioqueue

import (
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Operation is the closed set of blocking filesystem mutations the queue
// accepts. The original source left its `Operation` enum empty; §9 resolves
// that ambiguity by naming exactly the two variants the rest of the spec
// needs: directory creation ahead of a write, and interning a file from the
// store into a project tree.
type Operation interface {
	apply() error
}

// CreateDirAll recursively creates a directory, matching `os.MkdirAll`.
type CreateDirAll struct {
	Path string
	Mode os.FileMode
}

func (op CreateDirAll) apply() error {
	return os.MkdirAll(op.Path, op.Mode)
}

// ReflinkOrCopy links (or copies — the link function decides, §4.5 auto
// policy) a single file from Source to Target.
type ReflinkOrCopy struct {
	// Link performs the actual filesystem mutation; callers plug in the
	// hardlink→copy fallback chain from the importer package so
	// this queue stays agnostic of the platform-specific linking strategy.
	Link func(source, target string) error
	Source string
	Target string
}

func (op ReflinkOrCopy) apply() error {
	return op.Link(op.Source, op.Target)
}

type job struct {
	op    Operation
	reply chan error
}

// Queue is the single-writer serializer for directory creation and
// reflink/hardlink/copy operations described in §4.8 and §5 Mutual
// exclusion. A zero Queue is not usable; construct one with New.
type Queue struct {
	jobs chan job
	done chan struct{}
}

// New starts the queue's single background worker. Callers must call
// Shutdown once no further tasks will be submitted.
func New() *Queue {
	q := &Queue{
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		j.reply <- q.applyWithRetry(j.op)
	}
}

// applyWithRetry retries the rare transient filesystem races (e.g. a
// directory created by a sibling task mid-mkdir, or a rename landing on a
// not-yet-visible parent on some network filesystems) with the same bounded
// exponential backoff policy the HTTP layer uses, but capped far tighter
// since these are local syscalls, not network round-trips.
func (q *Queue) applyWithRetry(op Operation) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = op.apply()
		if lastErr == nil {
			return nil
		}
		if os.IsExist(lastErr) {
			// Converged with a concurrent writer; not an error (§5
			// StoreDir writes rely on content addressing, not locks).
			return nil
		}
		if os.IsNotExist(lastErr) || os.IsPermission(lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, policy)
	if err != nil {
		return errors.Wrap(lastErr, "io queue task failed")
	}
	return nil
}

// Submit enqueues op and returns a one-shot channel that resolves to its
// result. The caller may await it immediately or stash it to join with
// other fan-out work later (§4.8 "callers submit a task and receive a
// one-shot handle").
func (q *Queue) Submit(op Operation) <-chan error {
	reply := make(chan error, 1)
	q.jobs <- job{op: op, reply: reply}
	return reply
}

// Do submits op and blocks until it completes, for callers that have no use
// for the one-shot handle.
func (q *Queue) Do(op Operation) error {
	return <-q.Submit(op)
}

// Shutdown closes the queue. It blocks until the worker has drained any
// in-flight job and returned.
func (q *Queue) Shutdown() {
	close(q.jobs)
	<-q.done
}

// shutdownTimeout bounds how long Shutdown callers in tests should wait
// before concluding the worker is stuck; not used by Shutdown itself, which
// blocks unconditionally to guarantee every submitted task is observed.
const shutdownTimeout = 10 * time.Second
