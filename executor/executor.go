// Package executor implements the bounded transaction executor of
// spec.md §4.5: for each submitted command sequence, it derives the
// affected resource identifiers via the storage collaborator,
// acquires locks in the mode the command kind implies, invokes the
// external row-level command executor, and releases the locks — with
// at most config.MaxActiveTransactions workers running concurrently.
//
// It is adapted from the teacher's transaction.TransactionManager
// (Begin/Commit/Abort bookkeeping around a single caller-driven
// transaction) generalized into a worker-per-task bounded pool: the
// teacher has no admission queue because every transaction is
// explicitly Begin()'d by its caller, whereas spec.md requires
// bounding how many commands run concurrently regardless of how many
// are submitted.
package executor

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Johniel/gorellycore/internal/notify"
	"github.com/Johniel/gorellycore/lockmgr"
)

// CommandKind is the kind of row-level operation a Command performs.
// Insert, update, and delete demand exclusive locks; select demands
// shared locks (spec.md §3).
type CommandKind int

const (
	Select CommandKind = iota
	Insert
	Update
	Delete
)

// LockMode returns the lock mode a command of this kind requires.
func (k CommandKind) LockMode() lockmgr.Mode {
	if k == Select {
		return lockmgr.Shared
	}
	return lockmgr.Exclusive
}

// Command is one operation within a transaction task: a table name, a
// kind, and parameters opaque to the core.
type Command struct {
	Table  string
	Kind   CommandKind
	Params any
}

// Task is a transaction's command sequence, the unit the executor
// schedules (spec.md §3's "transaction task").
type Task struct {
	Commands []Command
}

// Outcome is the result carried back via the notification sink
// (spec.md §4.5).
type Outcome int

const (
	Committed Outcome = iota
	Aborted
)

// Storage is the external storage collaborator (spec.md §6): only the
// addresses lookup is needed by the executor (schema lookups belong
// to the algebra rewriter).
type Storage interface {
	Addresses(table string) ([]lockmgr.BlockID, error)
}

// RowExecutor is the external row-level command executor (spec.md
// §6), invoked once per transaction after all locks are held.
type RowExecutor interface {
	Execute(commands []Command) error
}

// Executor is the bounded transaction executor described in spec.md
// §4.5. Construct with New; the zero value is not usable.
type Executor struct {
	locks    *lockmgr.LockTable
	storage  Storage
	rowExec  RowExecutor
	sink     notify.Sink
	log      *zap.Logger
	maxActive int

	mu         sync.Mutex
	admission  *sync.Cond
	active     int
	outstanding int
	nextTxn    lockmgr.TxnID
}

// New constructs an Executor. maxActive <= 0 defaults to
// config.MaxActiveTransactions's value of 10 (callers should pass
// config.Default().MaxActiveTransactions explicitly; the package
// avoids importing config to keep executor free of CLI-only
// dependencies).
func New(locks *lockmgr.LockTable, storage Storage, rowExec RowExecutor, sink notify.Sink, maxActive int, log *zap.Logger) *Executor {
	if maxActive <= 0 {
		maxActive = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{
		locks:     locks,
		storage:   storage,
		rowExec:   rowExec,
		sink:      sink,
		log:       log,
		maxActive: maxActive,
	}
	e.admission = sync.NewCond(&e.mu)
	return e
}

// Submit admits task into the executor, blocking the caller while the
// active worker count is saturated (spec.md §4.5's admission rule),
// then spawns a worker goroutine and returns its transaction ID
// immediately — Submit does not wait for the task to finish.
func (e *Executor) Submit(task Task) lockmgr.TxnID {
	e.mu.Lock()
	for e.active >= e.maxActive {
		e.admission.Wait()
	}
	e.nextTxn++
	txn := e.nextTxn
	e.active++
	e.outstanding++
	e.mu.Unlock()

	e.log.Info("transaction admitted", zap.Uint64("txn", uint64(txn)), zap.String("task", uuid.NewString()), zap.Int("commands", len(task.Commands)))
	go e.run(txn, task)
	return txn
}

func (e *Executor) run(txn lockmgr.TxnID, task Task) {
	outcome := e.execute(txn, task)

	e.mu.Lock()
	e.active--
	e.outstanding--
	last := e.outstanding == 0
	e.sink.TransactionFinished(txn, outcome == Committed)
	if last {
		e.sink.AllTransactionsFinished()
	}
	e.mu.Unlock()
	e.admission.Signal()

	e.log.Info("transaction finished", zap.Uint64("txn", uint64(txn)), zap.Bool("committed", outcome == Committed))
}

// execute runs the worker procedure of spec.md §4.5 steps 1-4: derive
// addresses, acquire locks, invoke the row executor, release locks.
// Any failure aborts the transaction and releases whatever locks were
// already held — the executor never partially commits (spec.md §7).
func (e *Executor) execute(txn lockmgr.TxnID, task Task) Outcome {
	var held []lockmgr.BlockID

	abort := func(cause error) Outcome {
		e.locks.Release(held, txn)
		e.log.Warn("transaction aborted", zap.Uint64("txn", uint64(txn)), zap.Error(cause))
		return Aborted
	}

	for _, cmd := range task.Commands {
		blocks, err := e.storage.Addresses(cmd.Table)
		if err != nil {
			return abort(errors.Wrapf(err, "addresses(%s)", cmd.Table))
		}
		if len(blocks) == 0 {
			return abort(errors.Errorf("addresses(%s): no blocks", cmd.Table))
		}

		mode := cmd.Kind.LockMode()
		for _, block := range blocks {
			if err := e.locks.Acquire(block, mode, txn); err != nil {
				return abort(errors.Wrapf(err, "acquire block %d", block))
			}
			held = append(held, block)
		}
	}

	if err := e.rowExec.Execute(task.Commands); err != nil {
		return abort(errors.Wrap(err, "row executor"))
	}

	e.locks.Release(held, txn)
	return Committed
}

// Active reports the number of currently running workers.
func (e *Executor) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}
