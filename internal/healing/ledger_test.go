package healing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Remedy/internal/domain"
)

func attempt(id string, at time.Time) domain.SolutionAttempt {
	return domain.SolutionAttempt{SolutionID: id, Content: "content " + id, Timestamp: at}
}

func TestMemoryLedger_AppendOrder(t *testing.T) {
	l := NewMemoryLedger(10, time.Hour)

	l.Append("task-1", attempt("sol-1", testNow))
	l.Append("task-1", attempt("sol-2", testNow.Add(time.Second)))
	l.Append("task-2", attempt("sol-3", testNow))

	got := l.Attempts("task-1")
	require.Len(t, got, 2)
	assert.Equal(t, "sol-1", got[0].SolutionID)
	assert.Equal(t, "sol-2", got[1].SolutionID)
	assert.Len(t, l.Attempts("task-2"), 1)
	assert.Equal(t, 2, l.Len())
}

func TestMemoryLedger_UnknownTask(t *testing.T) {
	l := NewMemoryLedger(0, 0)

	assert.Nil(t, l.Attempts("missing"))
	assert.Zero(t, l.Len())
}

func TestMemoryLedger_AttemptsReturnsCopy(t *testing.T) {
	l := NewMemoryLedger(10, time.Hour)
	l.Append("task-1", attempt("sol-1", testNow))

	got := l.Attempts("task-1")
	got[0].SolutionID = "mutated"
	l.Append("task-1", attempt("sol-2", testNow))

	fresh := l.Attempts("task-1")
	assert.Equal(t, "sol-1", fresh[0].SolutionID)
	assert.Len(t, got, 1)
}

func TestMemoryLedger_EvictsLeastRecentlyUsed(t *testing.T) {
	l := NewMemoryLedger(2, time.Hour)

	l.Append("task-1", attempt("sol-1", testNow))
	l.Append("task-2", attempt("sol-2", testNow))
	l.Attempts("task-1") // task-1 становится свежее task-2
	l.Append("task-3", attempt("sol-3", testNow))

	assert.NotNil(t, l.Attempts("task-1"))
	assert.Nil(t, l.Attempts("task-2"))
	assert.NotNil(t, l.Attempts("task-3"))
	assert.Equal(t, 2, l.Len())
}

func TestMemoryLedger_ExpiresByTTL(t *testing.T) {
	l := NewMemoryLedger(10, 50*time.Millisecond)
	l.Append("task-1", attempt("sol-1", testNow))

	require.NotNil(t, l.Attempts("task-1"))

	assert.Eventually(t, func() bool {
		return l.Attempts("task-1") == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMemoryLedger_ConcurrentAppend(t *testing.T) {
	l := NewMemoryLedger(100, time.Hour)

	const workers, perWorker = 8, 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				l.Append("task-1", attempt(fmt.Sprintf("sol-%d-%d", w, i), testNow))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, l.Attempts("task-1"), workers*perWorker)
}
