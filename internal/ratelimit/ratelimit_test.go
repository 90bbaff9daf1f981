package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// фиксированные часы, которые двигаем вручную
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(maxTokens, refillPerMS float64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := NewLimiter(maxTokens, refillPerMS)
	l.now = clock.now
	return l, clock
}

func TestAllowConsumesBudget(t *testing.T) {
	l, _ := newTestLimiter(2, 0.001) // 1 токен в секунду

	if !l.Allow("k") {
		t.Fatal("первый запрос нового ключа должен быть разрешён")
	}
	if !l.Allow("k") {
		t.Fatal("второй запрос в пределах ёмкости должен быть разрешён")
	}
	if l.Allow("k") {
		t.Fatal("третий запрос в тот же момент должен быть отклонён")
	}

	// другой ключ имеет независимый бюджет
	if !l.Allow("other") {
		t.Fatal("бюджет другого ключа не должен зависеть от первого")
	}
}

func TestRefill(t *testing.T) {
	l, clock := newTestLimiter(2, 0.001)

	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("бюджет должен быть исчерпан")
	}

	clock.advance(1 * time.Second)
	if !l.Allow("k") {
		t.Fatal("после пополнения запрос должен быть разрешён")
	}
	if l.Allow("k") {
		t.Fatal("пополнился ровно один токен")
	}
}

func TestRefillCappedAtMax(t *testing.T) {
	l, clock := newTestLimiter(2, 0.001)

	l.Allow("k")
	clock.advance(time.Hour)

	if got := l.Remaining("k"); got != 2 {
		t.Errorf("Remaining после долгого простоя: получено %v, ожидалось 2", got)
	}
}

func TestRemainingDoesNotConsume(t *testing.T) {
	l, _ := newTestLimiter(3, 0.001)

	if got := l.Remaining("fresh"); got != 3 {
		t.Errorf("Remaining неизвестного ключа: получено %v, ожидалось 3", got)
	}

	l.Allow("k")
	before := l.Remaining("k")
	after := l.Remaining("k")
	if before != after {
		t.Errorf("Remaining списал токены: %v -> %v", before, after)
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := NewLimiter(1000, 0)

	var wg sync.WaitGroup
	allowed := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if l.Allow("shared") {
					allowed[n]++
				}
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range allowed {
		total += n
	}
	if total != 800 {
		t.Errorf("при ёмкости 1000 все 800 запросов должны пройти, прошло %d", total)
	}
	if rem := l.Remaining("shared"); rem != 200 {
		t.Errorf("остаток: получено %v, ожидалось 200", rem)
	}
}
