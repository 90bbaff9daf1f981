package middleware

import (
	"testing"
	"time"

	"github.com/paxren/webserver/internal/hash"
	"github.com/paxren/webserver/internal/models"
	"github.com/paxren/webserver/internal/ratelimit"
	"github.com/paxren/webserver/internal/session"
)

func newRequest(method models.Method, path string) *models.Request {
	return &models.Request{
		Method:     method,
		Path:       path,
		Headers:    map[string]string{},
		PathParams: map[string]string{},
		UserData:   map[string]string{},
		RemoteAddr: "127.0.0.1:54321",
	}
}

func TestChainShortCircuit(t *testing.T) {
	loggingCalled := false
	timingCalled := false

	c := NewChain()
	c.Use(func(req *models.Request) *models.Response {
		loggingCalled = true
		return nil
	})
	c.Use(func(req *models.Request) *models.Response {
		if req.Path == "/admin" {
			return models.ErrorResponse(models.StatusUnauthorized)
		}
		return nil
	})
	c.Use(func(req *models.Request) *models.Response {
		timingCalled = true
		return nil
	})

	resp := c.Process(newRequest(models.MethodGet, "/admin"))
	if resp == nil || resp.Status != models.StatusUnauthorized {
		t.Fatalf("ожидался 401, получено %+v", resp)
	}
	if !loggingCalled {
		t.Error("middleware до оборвавшего не был вызван")
	}
	if timingCalled {
		t.Error("middleware после оборвавшего не должен вызываться")
	}
}

func TestChainAllContinue(t *testing.T) {
	order := []string{}
	c := NewChain()
	for _, name := range []string{"a", "b", "c"} {
		n := name
		c.Use(func(req *models.Request) *models.Response {
			order = append(order, n)
			return nil
		})
	}

	if resp := c.Process(newRequest(models.MethodGet, "/")); resp != nil {
		t.Fatalf("цепочка без обрыва должна вернуть nil, получено %+v", resp)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("порядок вызова нарушен: %v", order)
	}
}

func TestUserDataFlowsThroughChain(t *testing.T) {
	c := NewChain()
	c.Use(func(req *models.Request) *models.Response {
		req.UserData["tenant"] = "acme"
		return nil
	})

	var seen string
	c.Use(func(req *models.Request) *models.Response {
		seen = req.UserData["tenant"]
		return nil
	})

	c.Process(newRequest(models.MethodGet, "/"))
	if seen != "acme" {
		t.Errorf("UserData не дошла до следующего middleware: %q", seen)
	}
}

func TestRequestID(t *testing.T) {
	m := RequestID()
	req1 := newRequest(models.MethodGet, "/")
	req2 := newRequest(models.MethodGet, "/")
	m(req1)
	m(req2)

	if req1.RequestID == "" || req2.RequestID == "" {
		t.Fatal("RequestID не присвоен")
	}
	if req1.RequestID == req2.RequestID {
		t.Errorf("идентификаторы запросов совпали: %s", req1.RequestID)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, 0)
	m := RateLimit(limiter, nil)

	for i := 0; i < 2; i++ {
		if resp := m(newRequest(models.MethodGet, "/")); resp != nil {
			t.Fatalf("запрос %d в пределах бюджета отклонён: %+v", i+1, resp)
		}
	}

	resp := m(newRequest(models.MethodGet, "/"))
	if resp == nil || resp.Status != models.StatusTooManyRequests {
		t.Fatalf("ожидался 429, получено %+v", resp)
	}
	if resp.Headers["Retry-After"] == "" {
		t.Error("в ответе 429 нет Retry-After")
	}

	// другой клиент имеет независимый бюджет
	other := newRequest(models.MethodGet, "/")
	other.RemoteAddr = "10.0.0.2:1000"
	if resp := m(other); resp != nil {
		t.Errorf("бюджет другого клиента исчерпан: %+v", resp)
	}
}

func TestSessionAttach(t *testing.T) {
	store := session.MakeMemStore(time.Minute)
	s, _ := store.Create()
	m := SessionAttach(store)

	req := newRequest(models.MethodGet, "/")
	req.Headers["X-Session-ID"] = s.ID
	if resp := m(req); resp != nil {
		t.Fatalf("валидная сессия не должна обрывать цепочку: %+v", resp)
	}
	if req.SessionID != s.ID {
		t.Errorf("SessionID: получено %q, ожидалось %q", req.SessionID, s.ID)
	}

	// неизвестная сессия: запрос проходит, но без SessionID
	req = newRequest(models.MethodGet, "/")
	req.Headers["X-Session-ID"] = "unknown"
	if resp := m(req); resp != nil {
		t.Fatalf("неизвестная сессия не должна обрывать цепочку: %+v", resp)
	}
	if req.SessionID != "" {
		t.Errorf("SessionID присвоен для неизвестной сессии: %q", req.SessionID)
	}
}

func TestHashCheck(t *testing.T) {
	const key = "secret"
	m := HashCheck(key)

	body := []byte(`{"op":"update"}`)
	good, err := hash.Sum([]byte(key), body)
	if err != nil {
		t.Fatalf("hash.Sum: %v", err)
	}

	tests := []struct {
		name       string
		signature  string
		wantStatus models.StatusCode // 0 — продолжить
	}{
		{name: "Valid signature", signature: good, wantStatus: 0},
		{name: "No signature passes through", signature: "", wantStatus: 0},
		{name: "Broken signature", signature: "deadbeef", wantStatus: models.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(models.MethodPost, "/api/echo")
			req.Body = body
			if tt.signature != "" {
				req.Headers["HashSHA256"] = tt.signature
			}

			resp := m(req)
			if tt.wantStatus == 0 {
				if resp != nil {
					t.Fatalf("ожидалось продолжение цепочки, получено %+v", resp)
				}
				return
			}
			if resp == nil || resp.Status != tt.wantStatus {
				t.Fatalf("ожидался статус %d, получено %+v", tt.wantStatus, resp)
			}
		})
	}
}
