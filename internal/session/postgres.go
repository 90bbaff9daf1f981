package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// PostgresStore хранит сессии в таблице sessions. Данные сессии
// сериализуются в JSON. Просроченные сессии вычищаются так же, как и в
// MemStore: лениво при Get и пакетно в CleanupExpired.
//
// Временные ошибки соединения повторяются с нарастающей паузой
// (см. classifier.go).
type PostgresStore struct {
	db      *sql.DB
	ttl     time.Duration
	mu      sync.Mutex
	counter uint64
}

// retryDelays — паузы между повторами временных ошибок.
var retryDelays = []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}

// MakePostgresStore открывает соединение и накатывает миграции из
// каталога migrationsPath (file://...).
func MakePostgresStore(dsn, migrationsPath string, ttl time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db, ttl: ttl}, nil
}

// withRetry выполняет fn, повторяя её при временных ошибках PostgreSQL.
func withRetry(fn func() error) error {
	err := fn()
	for attempt := 0; err != nil && Classify(err) == Retriable && attempt < len(retryDelays); attempt++ {
		time.Sleep(retryDelays[attempt])
		err = fn()
	}
	return err
}

func (p *PostgresStore) nextID(now time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	return strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(p.counter, 36)
}

func (p *PostgresStore) Create() (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:        p.nextID(now),
		Data:      make(map[string]string),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(p.ttl).Unix(),
	}

	err := withRetry(func() error {
		_, err := p.db.ExecContext(context.Background(), `
			INSERT INTO sessions (id, data, created_at, expires_at)
			VALUES ($1, $2, $3, $4)
		`, s.ID, "{}", s.CreatedAt, s.ExpiresAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) Get(id string) (*Session, error) {
	var (
		rawData   string
		createdAt int64
		expiresAt int64
	)

	err := withRetry(func() error {
		row := p.db.QueryRowContext(context.Background(),
			"SELECT data, created_at, expires_at FROM sessions WHERE id = $1", id)
		return row.Scan(&rawData, &createdAt, &expiresAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if time.Now().Unix() >= expiresAt {
		// ленивое вычищение, как в MemStore
		_ = p.Delete(id)
		return nil, ErrSessionNotFound
	}

	data := make(map[string]string)
	if err = json.Unmarshal([]byte(rawData), &data); err != nil {
		return nil, err
	}
	return &Session{ID: id, Data: data, CreatedAt: createdAt, ExpiresAt: expiresAt}, nil
}

func (p *PostgresStore) Save(s *Session) error {
	raw, err := json.Marshal(s.snapshotData())
	if err != nil {
		return err
	}
	return withRetry(func() error {
		_, err := p.db.ExecContext(context.Background(),
			"UPDATE sessions SET data = $2 WHERE id = $1", s.ID, string(raw))
		return err
	})
}

func (p *PostgresStore) Delete(id string) error {
	return withRetry(func() error {
		_, err := p.db.ExecContext(context.Background(),
			"DELETE FROM sessions WHERE id = $1", id)
		return err
	})
}

func (p *PostgresStore) CleanupExpired() (int, error) {
	var removed int64
	err := withRetry(func() error {
		res, err := p.db.ExecContext(context.Background(),
			"DELETE FROM sessions WHERE expires_at <= $1", time.Now().Unix())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

func (p *PostgresStore) Len() (int, error) {
	var n int
	err := withRetry(func() error {
		row := p.db.QueryRowContext(context.Background(),
			"SELECT count(*) FROM sessions WHERE expires_at > $1", time.Now().Unix())
		return row.Scan(&n)
	})
	return n, err
}

// Close закрывает соединение с базой.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
