package taskstore

import "errors"

// Ошибки клиента task store.
var (
	// ErrNotFound — API вернул 404.
	ErrNotFound = errors.New("not found")

	// ErrUnexpectedStatus — API вернул не-2xx код, отличный от 404.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrTransport — запрос не дошёл до API (сеть, DNS, таймаут).
	ErrTransport = errors.New("transport error")
)
