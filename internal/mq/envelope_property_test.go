package mq

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"pgregory.net/rapid"
)

// TestProperty_EncodedEnvelopeDecodesToScheduled verifies that every envelope
// produced for the CLI is read back by the consumer with the same id and time.
func TestProperty_EncodedEnvelopeDecodesToScheduled(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9_.:-]{0,40}`).Draw(rt, "task_id")
		ms := rapid.Int64Range(0, 4102444800000).Draw(rt, "delay_until_ms")

		var readyAt time.Time
		if ms > 0 {
			readyAt = time.UnixMilli(ms)
		}

		body, err := EncodeEnvelope(id, readyAt)
		if err != nil {
			rt.Fatalf("encode: %v", err)
		}

		env, ok := DecodeEnvelope(body).(Scheduled)
		if !ok {
			rt.Fatalf("expected Scheduled for %s", body)
		}
		if env.TaskID() != id {
			rt.Fatalf("task id mismatch: want %q, got %q", id, env.TaskID())
		}

		at, hasDelay := env.DelayUntil()
		if hasDelay != (ms > 0) {
			rt.Fatalf("delay presence mismatch for %s", body)
		}
		if hasDelay && at.UnixMilli() != ms {
			rt.Fatalf("delayUntil mismatch: want %d, got %d", ms, at.UnixMilli())
		}
	})
}

// TestProperty_PositiveDelayIsNeverInPast verifies that any positive integer
// delayUntil, however large, is decoded no earlier than the epoch.
func TestProperty_PositiveDelayIsNeverInPast(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		digits := rapid.StringMatching(`[1-9][0-9]{0,30}`).Draw(rt, "delay_until_ms")
		body := `{"taskId":"task-1","delayUntil":` + digits + `}`

		at, ok := DecodeEnvelope([]byte(body)).DelayUntil()
		if !ok {
			rt.Fatalf("expected delay for %s", body)
		}
		if !at.After(time.UnixMilli(0)) {
			rt.Fatalf("delay %s decoded to %v", digits, at)
		}
	})
}

// TestProperty_BareIDFallback verifies that plain identifiers are taken verbatim.
func TestProperty_BareIDFallback(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9_-]{1,40}`).Draw(rt, "task_id")
		pad := rapid.SampledFrom([]string{"", " ", "\n", "\t "}).Draw(rt, "padding")

		env := DecodeEnvelope([]byte(pad + id + pad))

		bare, ok := env.(BareID)
		if !ok {
			rt.Fatalf("expected BareID, got %T", env)
		}
		if string(bare) != id {
			rt.Fatalf("want %q, got %q", id, bare)
		}
		if _, hasDelay := env.DelayUntil(); hasDelay {
			rt.Fatalf("bare id must not carry a delay")
		}
	})
}

// TestProperty_DecodeNeverFails verifies that arbitrary bytes always yield
// a trimmed, valid UTF-8 task id.
func TestProperty_DecodeNeverFails(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		body := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(rt, "body")

		env := DecodeEnvelope(body)
		if env == nil {
			rt.Fatalf("nil envelope")
		}

		id := env.TaskID()
		if !utf8.ValidString(id) {
			rt.Fatalf("task id is not valid UTF-8: %q", id)
		}
		if id != strings.TrimSpace(id) {
			rt.Fatalf("task id is not trimmed: %q", id)
		}
	})
}
