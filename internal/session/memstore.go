package session

import (
	"strconv"
	"sync"
	"time"
)

// MemStore реализует потокобезопасное хранилище сессий в оперативной
// памяти. Все данные теряются при завершении работы программы.
//
// Map сессий защищена одним мьютексом; проверка срока жизни и вычистка
// просроченной сессии в Get выполняются атомарно под ним же.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	counter  uint64

	now func() time.Time // подменяется в тестах
}

// MakeMemStore создаёт хранилище с указанным временем жизни сессий.
func MakeMemStore(ttl time.Duration) *MemStore {
	return &MemStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// nextID генерирует id сессии. Одного времени недостаточно: при быстром
// создании наносекундные метки могут совпасть, поэтому к метке
// добавляется монотонно растущий счётчик. Вызывается под мьютексом.
func (m *MemStore) nextID(now time.Time) string {
	m.counter++
	return strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(m.counter, 36)
}

func (m *MemStore) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &Session{
		ID:        m.nextID(now),
		Data:      make(map[string]string),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *MemStore) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.now().Unix() >= s.ExpiresAt {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Save для хранилища в памяти ничего не делает: данные сессии и так
// живут в общем указателе.
func (m *MemStore) Save(_ *Session) error {
	return nil
}

func (m *MemStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemStore) CleanupExpired() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().Unix()
	removed := 0
	for id, s := range m.sessions {
		if now >= s.ExpiresAt {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}
