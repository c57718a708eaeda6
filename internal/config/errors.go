package config

import "errors"

// Ошибки конфигурации.
var (
	// ErrMissingConfig — не задана обязательная переменная окружения.
	ErrMissingConfig = errors.New("missing required config")

	// ErrInvalidConfig — значение переменной окружения не разбирается.
	ErrInvalidConfig = errors.New("invalid config value")
)
