package mq

import "errors"

// Ошибки работы с брокером.
var (
	// ErrNoChannel — AMQP канал ещё не открыт или закрыт брокером.
	ErrNoChannel = errors.New("no channel available")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("connection closed")
)
