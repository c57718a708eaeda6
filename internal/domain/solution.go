package domain

import "time"

// Solution — запись базы знаний с шагами исправления ошибки.
//
// Принадлежит внешнему knowledge store, для агента неизменяема.
type Solution struct {
	// ID — идентификатор решения.
	ID string `json:"id"`

	// Content — текст с описанием шагов исправления.
	Content string `json:"content"`

	// Source — откуда взято решение (например, имя runbook'а).
	Source string `json:"source"`

	// Similarity — похожесть на текст ошибки (0.0–1.0).
	Similarity float64 `json:"similarity"`
}

// SolutionAttempt — факт применения решения к task.
type SolutionAttempt struct {
	SolutionID string    `json:"solution_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSolutionAttempt создаёт запись о применении решения в момент now.
func NewSolutionAttempt(sol Solution, now time.Time) SolutionAttempt {
	return SolutionAttempt{
		SolutionID: sol.ID,
		Content:    sol.Content,
		Timestamp:  now,
	}
}
