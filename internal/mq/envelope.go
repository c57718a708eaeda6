package mq

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Envelope — разобранное тело сообщения из очереди задач.
//
// Реализации: BareID (в теле только идентификатор task)
// и Scheduled (JSON с taskId и, возможно, delayUntil).
type Envelope interface {
	// TaskID возвращает идентификатор task.
	TaskID() string

	// DelayUntil возвращает время активации.
	// ok == false, если задержка не задана.
	DelayUntil() (at time.Time, ok bool)

	isEnvelope()
}

// BareID — тело сообщения, не являющееся JSON-объектом с taskId.
// Весь текст считается идентификатором task.
type BareID string

// TaskID возвращает идентификатор task.
func (b BareID) TaskID() string { return string(b) }

// DelayUntil всегда возвращает ok == false.
func (b BareID) DelayUntil() (time.Time, bool) { return time.Time{}, false }

func (BareID) isEnvelope() {}

// Scheduled — структурированный envelope {"taskId": ..., "delayUntil": ...}.
type Scheduled struct {
	ID string

	// ReadyAt — время активации. Нулевое значение — без задержки.
	ReadyAt time.Time
}

// TaskID возвращает идентификатор task.
func (s Scheduled) TaskID() string { return s.ID }

// DelayUntil возвращает ReadyAt, если он задан.
func (s Scheduled) DelayUntil() (time.Time, bool) {
	if s.ReadyAt.IsZero() {
		return time.Time{}, false
	}
	return s.ReadyAt, true
}

func (Scheduled) isEnvelope() {}

// wireEnvelope — JSON-представление envelope для публикации.
type wireEnvelope struct {
	TaskID     string `json:"taskId"`
	DelayUntil int64  `json:"delayUntil,omitempty"`
}

// DecodeEnvelope разбирает тело сообщения.
//
// Функция не возвращает ошибок: некорректный JSON — это BareID.
// Невалидные UTF-8 последовательности заменяются на U+FFFD.
func DecodeEnvelope(body []byte) Envelope {
	text := strings.ToValidUTF8(string(body), "\uFFFD")
	trimmed := bytes.TrimSpace([]byte(text))

	if len(trimmed) > 0 && trimmed[0] == '{' {
		if env, ok := decodeObject(trimmed); ok {
			return env
		}
	}

	// JSON-строка "task-103" — тоже голый идентификатор
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return BareID(strings.TrimSpace(s))
		}
	}

	return BareID(strings.TrimSpace(text))
}

// decodeObject извлекает taskId и delayUntil из JSON-объекта.
// delayUntil неподходящего типа игнорируется.
func decodeObject(data []byte) (Scheduled, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Scheduled{}, false
	}

	id, ok := decodeTaskID(fields["taskId"])
	if !ok {
		return Scheduled{}, false
	}

	env := Scheduled{ID: id}
	if at, ok := decodeMillis(fields["delayUntil"]); ok {
		env.ReadyAt = at
	}

	return env, true
}

// decodeTaskID принимает taskId строкой или числом ({"taskId": 42} → "42").
func decodeTaskID(raw json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		n, ok := decodeNumber(raw)
		if !ok {
			return "", false
		}
		id = n.String()
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

// decodeMillis разбирает delayUntil (unix ms). Дробная часть отбрасывается,
// значения за пределами int64 считаются бесконечно далёким будущим.
func decodeMillis(raw json.RawMessage) (time.Time, bool) {
	n, ok := decodeNumber(raw)
	if !ok {
		return time.Time{}, false
	}

	ms, err := n.Int64()
	if err != nil {
		f, ferr := strconv.ParseFloat(n.String(), 64)
		switch {
		case f >= math.MaxInt64:
			// ParseFloat возвращает +Inf вместе с ErrRange
			ms = math.MaxInt64
		case ferr != nil, f <= 0:
			return time.Time{}, false
		default:
			ms = int64(f)
		}
	}

	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// decodeNumber читает JSON-число без потери точности.
// Строка с цифрами числом не считается.
func decodeNumber(raw json.RawMessage) (json.Number, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return "", false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

// EncodeEnvelope сериализует envelope для публикации.
// Нулевой readyAt — без delayUntil.
func EncodeEnvelope(taskID string, readyAt time.Time) ([]byte, error) {
	w := wireEnvelope{TaskID: taskID}
	if !readyAt.IsZero() {
		w.DelayUntil = readyAt.UnixMilli()
	}
	return json.Marshal(w)
}

// RemainingDelay возвращает, сколько ещё ждать до активации envelope.
// Ноль — envelope готов к обработке.
func RemainingDelay(env Envelope, now time.Time) time.Duration {
	at, ok := env.DelayUntil()
	if !ok {
		return 0
	}
	remaining := at.Sub(now)
	if remaining < time.Millisecond {
		return 0
	}
	return remaining.Truncate(time.Millisecond)
}
