package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/paxren/webserver/internal/models"
)

func metric(path string, dur int64, status models.StatusCode) RequestMetric {
	return RequestMetric{
		Path:       path,
		Method:     models.MethodGet,
		Start:      time.Now(),
		DurationMS: dur,
		Status:     status,
	}
}

func TestEndpointStats(t *testing.T) {
	a := NewAggregator(10)
	a.Record(metric("/ping", 5, models.StatusOK))
	a.Record(metric("/ping", 1, models.StatusOK))
	a.Record(metric("/ping", 9, models.StatusOK))

	st, ok := a.EndpointStats(models.MethodGet, "/ping")
	if !ok {
		t.Fatal("статистика эндпоинта не найдена")
	}
	if st.Count != 3 {
		t.Errorf("Count: получено %d, ожидалось 3", st.Count)
	}
	if st.TotalMS != 15 {
		t.Errorf("TotalMS: получено %d, ожидалось 15", st.TotalMS)
	}
	if st.MinMS != 1 || st.MaxMS != 9 {
		t.Errorf("Min/Max: получено %d/%d, ожидалось 1/9", st.MinMS, st.MaxMS)
	}

	if _, ok := a.EndpointStats(models.MethodPost, "/ping"); ok {
		t.Error("метод входит в ключ статистики, POST не должен находиться")
	}
}

func TestRecentRingEviction(t *testing.T) {
	a := NewAggregator(2)
	a.Record(metric("/a", 1, models.StatusOK))
	a.Record(metric("/b", 2, models.StatusOK))
	a.Record(metric("/c", 3, models.StatusOK))

	recent := a.Recent()
	if len(recent) != 2 {
		t.Fatalf("в кольце %d записей, ожидалось 2", len(recent))
	}
	if recent[0].Path != "/b" || recent[1].Path != "/c" {
		t.Errorf("в кольце %s, %s; ожидались /b, /c", recent[0].Path, recent[1].Path)
	}
}

// Вытеснение из кольца не влияет на накопительную статистику.
func TestStatsSurviveEviction(t *testing.T) {
	a := NewAggregator(2)
	for i := 0; i < 3; i++ {
		a.Record(metric("/ping", 1, models.StatusOK))
	}

	st, ok := a.EndpointStats(models.MethodGet, "/ping")
	if !ok || st.Count != 3 {
		t.Errorf("Count: получено %d, ожидалось 3", st.Count)
	}
}

// EndpointStats возвращает копию: изменение агрегатора после снятия
// среза не должно быть видно вызывающему.
func TestStatsSnapshotIsolation(t *testing.T) {
	a := NewAggregator(10)
	a.Record(metric("/ping", 1, models.StatusOK))

	st, _ := a.EndpointStats(models.MethodGet, "/ping")
	a.Record(metric("/ping", 100, models.StatusOK))

	if st.Count != 1 || st.MaxMS != 1 {
		t.Errorf("срез изменился под вызывающим: %+v", st)
	}
}

func TestTakeSnapshot(t *testing.T) {
	a := NewAggregator(10)
	a.Record(metric("/a", 1, models.StatusOK))
	a.Record(metric("/b", 2, models.StatusNotFound))

	snap := a.TakeSnapshot()
	if len(snap.Endpoints) != 2 {
		t.Errorf("эндпоинтов в срезе: %d, ожидалось 2", len(snap.Endpoints))
	}
	if len(snap.Recent) != 2 {
		t.Errorf("записей в срезе: %d, ожидалось 2", len(snap.Recent))
	}
}

func TestConcurrentRecord(t *testing.T) {
	a := NewAggregator(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Record(metric("/ping", 1, models.StatusOK))
			}
		}()
	}
	wg.Wait()

	st, _ := a.EndpointStats(models.MethodGet, "/ping")
	if st.Count != 800 {
		t.Errorf("Count: получено %d, ожидалось 800", st.Count)
	}
	if got := len(a.Recent()); got != 16 {
		t.Errorf("в кольце %d записей, ожидалось 16", got)
	}
}
