// Package session реализует хранилище сессий с ограниченным временем
// жизни (TTL). Базовая реализация держит сессии в памяти; при наличии
// DSN подключается хранилище в PostgreSQL.
package session

import "sync"

// Session — одна пользовательская сессия. Времена хранятся в секундах
// эпохи. Данные сессии защищены собственным мьютексом: сессии с разными
// id никогда не разделяют состояние.
type Session struct {
	ID        string            `json:"id"`
	Data      map[string]string `json:"data"`
	CreatedAt int64             `json:"created_at"`
	ExpiresAt int64             `json:"expires_at"`

	mu sync.Mutex
}

// SetValue записывает значение в данные сессии.
func (s *Session) SetValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// GetValue возвращает значение по ключу и признак его наличия.
func (s *Session) GetValue(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Data[key]
	return v, ok
}

// RemoveValue удаляет значение по ключу.
func (s *Session) RemoveValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Data, key)
}

// snapshotData копирует данные сессии (для сериализации в Postgres).
func (s *Session) snapshotData() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		cp[k] = v
	}
	return cp
}
