package models

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// StatusCode — закрытый набор статусов, которыми оперирует фреймворк.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusCreated             StatusCode = 201
	StatusNoContent           StatusCode = 204
	StatusBadRequest          StatusCode = 400
	StatusUnauthorized        StatusCode = 401
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusMethodNotAllowed    StatusCode = 405
	StatusPayloadTooLarge     StatusCode = 413
	StatusTooManyRequests     StatusCode = 429
	StatusHeadersTooLarge     StatusCode = 431
	StatusInternalServerError StatusCode = 500
)

var reasonPhrases = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusNoContent:           "No Content",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusPayloadTooLarge:     "Payload Too Large",
	StatusTooManyRequests:     "Too Many Requests",
	StatusHeadersTooLarge:     "Request Header Fields Too Large",
	StatusInternalServerError: "Internal Server Error",
}

// Reason возвращает стандартную фразу статуса.
func (c StatusCode) Reason() string {
	if r, ok := reasonPhrases[c]; ok {
		return r
	}
	return "Unknown"
}

// Response — значение, возвращаемое обработчиком. После возврата из
// обработчика им владеет движок соединения вплоть до сериализации.
type Response struct {
	Status      StatusCode
	ContentType string
	Body        []byte

	// Дополнительные заголовки (например Retry-After). Может быть nil.
	Headers map[string]string
}

// NewResponse собирает ответ из статуса, типа содержимого и тела.
func NewResponse(status StatusCode, contentType string, body []byte) *Response {
	return &Response{
		Status:      status,
		ContentType: contentType,
		Body:        body,
	}
}

// TextResponse — текстовый ответ (text/plain).
func TextResponse(status StatusCode, text string) *Response {
	return NewResponse(status, "text/plain", []byte(text))
}

// JSONResponse — ответ с телом application/json.
func JSONResponse(status StatusCode, body []byte) *Response {
	return NewResponse(status, "application/json", body)
}

// ErrorResponse — ответ об ошибке, тело которого совпадает с фразой статуса.
func ErrorResponse(status StatusCode) *Response {
	return TextResponse(status, status.Reason())
}

// SetHeader добавляет дополнительный заголовок к ответу.
func (r *Response) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// Serialize переводит ответ в проволочный формат HTTP/1.1.
// Content-Length всегда равен точной длине тела в байтах.
func (r *Response) Serialize() []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(int(r.Status)))
	b.WriteString(" ")
	b.WriteString(r.Status.Reason())
	b.WriteString(crlf)
	b.WriteString("Content-Type: ")
	b.WriteString(r.ContentType)
	b.WriteString(crlf)
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString(crlf)

	// порядок дополнительных заголовков фиксируем, чтобы сериализация
	// была детерминированной
	if len(r.Headers) > 0 {
		keys := make([]string, 0, len(r.Headers))
		for k := range r.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(r.Headers[k])
			b.WriteString(crlf)
		}
	}

	b.WriteString(crlf)
	b.Write(r.Body)
	return []byte(b.String())
}

// ParseResponseHead разбирает статусную строку и заголовки
// сериализованного ответа. Используется для проверки round-trip
// свойства сериализации.
func ParseResponseHead(raw []byte) (StatusCode, map[string]string, error) {
	head := raw
	if i := bytes.Index(raw, headerSep); i >= 0 {
		head = raw[:i]
	}
	lines := strings.Split(string(head), crlf)
	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) < 3 || !strings.HasPrefix(parts[0], "HTTP/") {
		return 0, nil, &ParseError{What: "некорректная статусная строка", Line: lines[0]}
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, nil, &ParseError{What: "некорректный код статуса", Line: parts[1]}
	}

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return 0, nil, &ParseError{What: "некорректный заголовок", Line: line}
		}
		headers[k] = strings.TrimSpace(v)
	}
	return StatusCode(code), headers, nil
}
