package models

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Method — HTTP-метод запроса. Неизвестные методы не являются ошибкой
// разбора, они сводятся к MethodUnknown и отклоняются уже движком.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
	MethodPatch   Method = "PATCH"
	MethodUnknown Method = "UNKNOWN"
)

// ParseMethod сводит строку метода к известному значению.
func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "OPTIONS":
		return MethodOptions
	case "HEAD":
		return MethodHead
	case "PATCH":
		return MethodPatch
	}
	return MethodUnknown
}

// ParseError — ошибка разбора HTTP-сообщения.
type ParseError struct {
	What string // что именно не разобралось
	Line string // исходная строка, если применимо
}

func (e *ParseError) Error() string {
	if e.Line == "" {
		return "ошибка разбора запроса: " + e.What
	}
	return "ошибка разбора запроса: " + e.What + ": " + strconv.Quote(e.Line)
}

// NOTE: Не усложняем модель, вводя отдельные типы для URL и заголовков.
// Ограничиваемся плоской структурой: path хранится как есть (вместе с
// query-частью), заголовки — обычная map со строгим учётом регистра.
//
// Служебные поля (PathParams, SessionID, RequestID, Start) заполняются
// фреймворком: роутером и middleware. UserData остаётся свободной
// map'ой только для пользовательских middleware.
type Request struct {
	Method     Method
	Path       string
	Proto      string
	Headers    map[string]string
	Body       []byte
	RemoteAddr string

	PathParams map[string]string
	SessionID  string
	RequestID  string
	Start      time.Time

	UserData map[string]string
}

const crlf = "\r\n"

var headerSep = []byte("\r\n\r\n")

// ParseRequest разбирает сырые байты одного HTTP/1.1-сообщения.
//
// Строка запроса делится по пробелам на метод, путь и протокол; затем
// читаются заголовки до пустой строки. Всё, что осталось после
// разделителя заголовков, считается телом (движок вызывает разбор
// повторно, когда тело дочитано полностью).
//
// Возвращает:
//   - *Request: разобранный запрос
//   - error: *ParseError при некорректной строке запроса или заголовке
func ParseRequest(raw []byte) (*Request, error) {
	head := raw
	var body []byte
	if i := bytes.Index(raw, headerSep); i >= 0 {
		head = raw[:i]
		body = raw[i+len(headerSep):]
	}

	lines := strings.Split(string(head), crlf)
	if len(lines) == 0 || lines[0] == "" {
		return nil, &ParseError{What: "пустая строка запроса"}
	}

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 {
		return nil, &ParseError{What: "некорректная строка запроса", Line: lines[0]}
	}

	req := &Request{
		Method:     ParseMethod(parts[0]),
		Path:       parts[1],
		Proto:      parts[2],
		Headers:    make(map[string]string),
		PathParams: make(map[string]string),
		UserData:   make(map[string]string),
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok || k == "" {
			return nil, &ParseError{What: "некорректный заголовок", Line: line}
		}
		req.Headers[k] = strings.TrimSpace(v)
	}

	if len(body) > 0 {
		req.Body = body
	}
	return req, nil
}

// ContentLength возвращает заявленную длину тела. Отсутствующий,
// нечисловой или отрицательный Content-Length трактуется как 0.
func (r *Request) ContentLength() int {
	v, ok := r.Headers["Content-Length"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Header возвращает значение заголовка и признак его наличия.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.Headers[key]
	return v, ok
}
