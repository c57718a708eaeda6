// Package domain содержит модели, с которыми работает агент:
// Task (копия записи из task store), Solution (запись базы знаний)
// и SolutionAttempt (запись в журнале применённых решений).
package domain
