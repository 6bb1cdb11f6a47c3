package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Johniel/gorellycore/internal/notify"
	"github.com/Johniel/gorellycore/lockmgr"
)

type fakeStorage struct {
	blocks map[string][]lockmgr.BlockID
}

func (f *fakeStorage) Addresses(table string) ([]lockmgr.BlockID, error) {
	return f.blocks[table], nil
}

type countingRowExec struct {
	calls int32
	delay time.Duration
}

func (c *countingRowExec) Execute(commands []Command) error {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return nil
}

// Scenario L4: submit 12 trivial transactions at once with a cap of
// 10. The test checks that no more than 10 workers are active shortly
// after submission and that all 12 transactions eventually finish.
func TestAdmissionBound(t *testing.T) {
	locks := lockmgr.New(101, nil, nil)
	storage := &fakeStorage{blocks: map[string][]lockmgr.BlockID{"t": {1}}}
	rowExec := &countingRowExec{delay: 100 * time.Millisecond}

	var finished int32
	sink := notify.Sink{
		OnTransactionFinished: func(txn lockmgr.TxnID, committed bool) {
			atomic.AddInt32(&finished, 1)
		},
	}

	ex := New(locks, storage, rowExec, sink, 10, nil)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex.Submit(Task{Commands: []Command{{Table: "t", Kind: Select}}})
		}()
	}

	// Give the first wave time to start; admission for 12 submissions
	// should not all return immediately once 10 are active.
	time.Sleep(20 * time.Millisecond)
	require.LessOrEqual(t, ex.Active(), 10)

	wg.Wait()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&finished) == 12
	}, 2*time.Second, 10*time.Millisecond)
	require.EqualValues(t, 12, atomic.LoadInt32(&rowExec.calls))
}

func TestUnknownTableAborts(t *testing.T) {
	locks := lockmgr.New(101, nil, nil)
	storage := &fakeStorage{blocks: map[string][]lockmgr.BlockID{}}
	rowExec := &countingRowExec{}

	done := make(chan bool, 1)
	sink := notify.Sink{
		OnTransactionFinished: func(txn lockmgr.TxnID, committed bool) {
			done <- committed
		},
	}
	ex := New(locks, storage, rowExec, sink, 10, nil)
	ex.Submit(Task{Commands: []Command{{Table: "missing", Kind: Select}}})

	select {
	case committed := <-done:
		require.False(t, committed)
	case <-time.After(time.Second):
		t.Fatal("transaction did not finish")
	}
	require.Zero(t, rowExec.calls)
}

func TestExclusiveCommandsSerialize(t *testing.T) {
	locks := lockmgr.New(101, nil, nil)
	storage := &fakeStorage{blocks: map[string][]lockmgr.BlockID{"t": {1}}}

	var active int32
	var maxActive int32
	var mu sync.Mutex
	rowExec := Func(func(commands []Command) error {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > maxActive {
			maxActive = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	var finished int32
	sink := notify.Sink{OnTransactionFinished: func(lockmgr.TxnID, bool) { atomic.AddInt32(&finished, 1) }}
	ex := New(locks, storage, rowExec, sink, 10, nil)

	for i := 0; i < 5; i++ {
		ex.Submit(Task{Commands: []Command{{Table: "t", Kind: Insert}}})
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&finished) == 5 }, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.EqualValues(t, 1, maxActive, "exclusive locks on the same block must serialize row execution")
}

// Func adapts a plain function to the RowExecutor interface for tests.
type Func func(commands []Command) error

func (f Func) Execute(commands []Command) error { return f(commands) }
