// Package config читает конфигурацию агента из переменных окружения.
//
// Обязательные переменные:
//   - DEVART_API_BASE_URL, DEVART_AGENT_ID, DEVART_API_KEY — доступ к task store
//   - REMEDY_MAX_ATTEMPTS — потолок попыток (0 — повторять бесконечно)
//
// Остальные имеют значения по умолчанию, см. Load.
package config
