// Package ratelimit реализует ограничение частоты запросов по алгоритму
// token bucket с ленивым пополнением.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter хранит по одному bucket'у на ключ. Bucket создаётся лениво при
// первом обращении и живёт до конца жизни Limiter'а.
//
// Все операции сериализуются одним мьютексом на весь Limiter: блокировка
// на каждый ключ дала бы больше параллелизма, но усложнила бы работу с
// map и ничего не дала бы на практике — критические секции короткие.
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxTokens   float64
	refillPerMS float64

	now func() time.Time // подменяется в тестах
}

// NewLimiter создаёт Limiter.
//
// Параметры:
//   - maxTokens: ёмкость bucket'а (и стартовый запас нового ключа)
//   - refillPerMS: скорость пополнения, токенов в миллисекунду
func NewLimiter(maxTokens, refillPerMS float64) *Limiter {
	return &Limiter{
		buckets:     make(map[string]*bucket),
		maxTokens:   maxTokens,
		refillPerMS: refillPerMS,
		now:         time.Now,
	}
}

// refill пополняет bucket по прошедшему времени. Вызывается под мьютексом.
func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := float64(now.Sub(b.lastRefill).Milliseconds())
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * l.refillPerMS
	if b.tokens > l.maxTokens {
		b.tokens = l.maxTokens
	}
	b.lastRefill = now
}

// Allow пытается потратить один токен ключа key.
//
// Для нового ключа bucket создаётся полным и токен списывается сразу,
// поэтому первый запрос нового ключа всегда разрешён. Разные ключи
// имеют полностью независимые бюджеты.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{
			tokens:     l.maxTokens - 1,
			lastRefill: now,
		}
		return true
	}

	l.refill(b, now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Remaining пополняет bucket и возвращает текущий запас токенов, ничего
// не списывая. Для неизвестного ключа возвращает полную ёмкость.
func (l *Limiter) Remaining(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.maxTokens
	}
	l.refill(b, l.now())
	return b.tokens
}
