package session

import "errors"

var ErrSessionNotFound = errors.New("сессия не найдена")

// Store — контракт хранилища сессий. Реализации: MemStore (в памяти) и
// PostgresStore (pgx). Выбор реализации делает cmd/server по DSN, как и
// выбор хранилища метрик в исходном проекте.
type Store interface {
	// Create создаёт новую сессию с устойчивым к коллизиям id.
	Create() (*Session, error)

	// Get возвращает живую сессию. Просроченная сессия вычищается
	// и трактуется как отсутствующая (ErrSessionNotFound).
	Get(id string) (*Session, error)

	// Save фиксирует изменённые данные сессии. Для MemStore — no-op.
	Save(s *Session) error

	// Delete удаляет сессию безусловно.
	Delete(id string) error

	// CleanupExpired вычищает все просроченные сессии и возвращает
	// число удалённых. Вызывается периодическим планировщиком,
	// а не обработкой запросов.
	CleanupExpired() (int, error)

	// Len возвращает число живых сессий (для ops-эндпоинта).
	Len() (int, error)
}
