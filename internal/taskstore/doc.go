// Package taskstore — клиент внешнего REST API агентов.
//
// Покрывает пять вызовов:
//
//	GET  /api/tasks/{id}                  — данные task
//	PUT  /api/tasks/{id}/error            — отчёт об ошибке
//	POST /api/knowledge/search            — поиск решений в базе знаний
//	POST /api/tasks/{id}/solution-applied — отчёт о применении решения
//	PUT  /api/tasks/{id}/status           — смена статуса
//
// Все запросы авторизуются заголовком "Authorization: Bearer <api key>".
package taskstore
