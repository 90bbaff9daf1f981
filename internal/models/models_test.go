package models

import (
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		method      Method
		path        string
		body        string
		wantHeaders map[string]string
	}{
		{
			name:   "Simple GET",
			raw:    "GET /ping HTTP/1.1\r\nHost: localhost\r\n\r\n",
			method: MethodGet,
			path:   "/ping",
			wantHeaders: map[string]string{
				"Host": "localhost",
			},
		},
		{
			name:   "POST with body",
			raw:    "POST /api/echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello",
			method: MethodPost,
			path:   "/api/echo",
			body:   "hello",
			wantHeaders: map[string]string{
				"Content-Length": "5",
			},
		},
		{
			name:   "Unknown method is not a parse error",
			raw:    "BREW /coffee HTTP/1.1\r\n\r\n",
			method: MethodUnknown,
			path:   "/coffee",
		},
		{
			name:   "Path keeps query component",
			raw:    "GET /users?active=1 HTTP/1.1\r\n\r\n",
			method: MethodGet,
			path:   "/users?active=1",
		},
		{
			name:    "Malformed request line",
			raw:     "GET /ping\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "Malformed header line",
			raw:     "GET /ping HTTP/1.1\r\nbroken header\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "Empty input",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ожидалась ошибка разбора, получен запрос %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("метод: получено %q, ожидалось %q", req.Method, tt.method)
			}
			if req.Path != tt.path {
				t.Errorf("путь: получено %q, ожидалось %q", req.Path, tt.path)
			}
			if string(req.Body) != tt.body {
				t.Errorf("тело: получено %q, ожидалось %q", req.Body, tt.body)
			}
			for k, v := range tt.wantHeaders {
				if got := req.Headers[k]; got != v {
					t.Errorf("заголовок %s: получено %q, ожидалось %q", k, got, v)
				}
			}
		})
	}
}

func TestContentLength(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "Valid", value: "42", want: 42},
		{name: "Missing", value: "", want: 0},
		{name: "Negative", value: "-5", want: 0},
		{name: "Not a number", value: "abc", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Headers: map[string]string{}}
			if tt.value != "" {
				req.Headers["Content-Length"] = tt.value
			}
			if got := req.ContentLength(); got != tt.want {
				t.Errorf("ContentLength: получено %d, ожидалось %d", got, tt.want)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := NewResponse(StatusOK, "text/plain", []byte("Hello, World!"))
	raw := resp.Serialize()

	if !strings.Contains(string(raw), "Content-Length: 13") {
		t.Errorf("в сериализованном ответе нет Content-Length: 13:\n%s", raw)
	}

	status, headers, err := ParseResponseHead(raw)
	if err != nil {
		t.Fatalf("неожиданная ошибка разбора: %v", err)
	}
	if status != StatusOK {
		t.Errorf("статус: получено %d, ожидалось %d", status, StatusOK)
	}
	if ct := headers["Content-Type"]; ct != "text/plain" {
		t.Errorf("Content-Type: получено %q, ожидалось %q", ct, "text/plain")
	}
}

func TestResponseExtraHeaders(t *testing.T) {
	resp := ErrorResponse(StatusTooManyRequests)
	resp.SetHeader("Retry-After", "1")
	raw := string(resp.Serialize())

	if !strings.Contains(raw, "Retry-After: 1\r\n") {
		t.Errorf("в сериализованном ответе нет Retry-After:\n%s", raw)
	}
	if !strings.HasPrefix(raw, "HTTP/1.1 429 Too Many Requests\r\n") {
		t.Errorf("некорректная статусная строка:\n%s", raw)
	}
}
