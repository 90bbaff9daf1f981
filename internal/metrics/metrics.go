// Package metrics агрегирует статистику обработанных запросов.
package metrics

import (
	"sync"
	"time"

	"github.com/paxren/webserver/internal/models"
)

// RequestMetric — одна запись о завершённом запросе.
type RequestMetric struct {
	Path       string            `json:"path"`
	Method     models.Method     `json:"method"`
	Start      time.Time         `json:"start"`
	DurationMS int64             `json:"duration_ms"`
	Status     models.StatusCode `json:"status"`
}

// EndpointStats — накопительная статистика по ключу "METHOD:PATH".
type EndpointStats struct {
	Count   int64 `json:"count"`
	TotalMS int64 `json:"total_ms"`
	MinMS   int64 `json:"min_ms"`
	MaxMS   int64 `json:"max_ms"`
}

// Aggregator хранит накопительную статистику по эндпоинтам и кольцо
// последних запросов. Кольцо ограничено ёмкостью: при переполнении
// вытесняется самая старая запись (FIFO, без сэмплирования).
//
// Все операции сериализуются одним мьютексом.
type Aggregator struct {
	mu       sync.Mutex
	stats    map[string]*EndpointStats
	recent   []RequestMetric
	capacity int
}

// NewAggregator создаёт агрегатор с указанной ёмкостью кольца последних
// запросов.
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{
		stats:    make(map[string]*EndpointStats),
		capacity: capacity,
	}
}

func statsKey(method models.Method, path string) string {
	return string(method) + ":" + path
}

// Record учитывает завершённый запрос.
func (a *Aggregator) Record(m RequestMetric) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := statsKey(m.Method, m.Path)
	st, ok := a.stats[key]
	if !ok {
		st = &EndpointStats{MinMS: m.DurationMS, MaxMS: m.DurationMS}
		a.stats[key] = st
	}
	st.Count++
	st.TotalMS += m.DurationMS
	if m.DurationMS < st.MinMS {
		st.MinMS = m.DurationMS
	}
	if m.DurationMS > st.MaxMS {
		st.MaxMS = m.DurationMS
	}

	a.recent = append(a.recent, m)
	if len(a.recent) > a.capacity {
		a.recent = a.recent[1:]
	}
}

// EndpointStats возвращает копию статистики эндпоинта, чтобы вызывающий
// не наблюдал её изменение под собой.
func (a *Aggregator) EndpointStats(method models.Method, path string) (EndpointStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.stats[statsKey(method, path)]
	if !ok {
		return EndpointStats{}, false
	}
	return *st, true
}

// Recent возвращает копию кольца последних запросов, от старых к новым.
func (a *Aggregator) Recent() []RequestMetric {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := make([]RequestMetric, len(a.recent))
	copy(cp, a.recent)
	return cp
}

// Snapshot — полный срез состояния агрегатора для ops-эндпоинта.
type Snapshot struct {
	Endpoints map[string]EndpointStats `json:"endpoints"`
	Recent    []RequestMetric          `json:"recent"`
}

// TakeSnapshot снимает копию всей накопленной статистики.
func (a *Aggregator) TakeSnapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		Endpoints: make(map[string]EndpointStats, len(a.stats)),
		Recent:    make([]RequestMetric, len(a.recent)),
	}
	for k, st := range a.stats {
		snap.Endpoints[k] = *st
	}
	copy(snap.Recent, a.recent)
	return snap
}
