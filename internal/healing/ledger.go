package healing

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/shaiso/Remedy/internal/domain"
)

// Default configuration values.
const (
	DefaultLedgerSize = 1024
	DefaultLedgerTTL  = 24 * time.Hour
)

// Ledger — журнал применённых решений по task.
//
// Попытки одной task хранятся в порядке добавления и не удаляются,
// пока запись не вытеснена политикой хранения реализации.
type Ledger interface {
	// Append добавляет попытку в конец журнала task.
	Append(taskID string, attempt domain.SolutionAttempt)

	// Attempts возвращает копию журнала task (nil, если записей нет).
	Attempts(taskID string) []domain.SolutionAttempt
}

// MemoryLedger — Ledger в памяти процесса, ограниченный по числу task (LRU)
// и по возрасту записи (TTL). Безопасен для конкурентного использования.
type MemoryLedger struct {
	// mu делает read-modify-write в Append атомарным
	mu    sync.Mutex
	cache *expirable.LRU[string, []domain.SolutionAttempt]
}

// NewMemoryLedger создаёт журнал на size task с временем жизни записи ttl.
// size <= 0 и ttl <= 0 заменяются значениями по умолчанию.
func NewMemoryLedger(size int, ttl time.Duration) *MemoryLedger {
	if size <= 0 {
		size = DefaultLedgerSize
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}

	return &MemoryLedger{
		cache: expirable.NewLRU[string, []domain.SolutionAttempt](size, nil, ttl),
	}
}

// Append добавляет попытку в журнал task, создавая запись при необходимости.
func (l *MemoryLedger) Append(taskID string, attempt domain.SolutionAttempt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, _ := l.cache.Get(taskID)

	// Срез в кэше не мутируем: его копию мог вернуть Attempts
	next := make([]domain.SolutionAttempt, len(current), len(current)+1)
	copy(next, current)
	next = append(next, attempt)

	l.cache.Add(taskID, next)
}

// Attempts возвращает копию журнала task.
func (l *MemoryLedger) Attempts(taskID string) []domain.SolutionAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempts, ok := l.cache.Get(taskID)
	if !ok {
		return nil
	}
	return slices.Clone(attempts)
}

// Len возвращает число task в журнале.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}
