// Package middleware реализует синхронную цепочку обработчиков,
// которые выполняются до роутера и могут оборвать обработку запроса,
// вернув готовый ответ.
package middleware

import "github.com/paxren/webserver/internal/models"

// Middleware возвращает *Response, чтобы оборвать цепочку, или nil,
// чтобы передать запрос дальше. Через UserData запроса middleware
// может передавать данные последующим middleware и обработчику.
type Middleware func(*models.Request) *models.Response

// Chain — упорядоченный список middleware. Наполняется один раз при
// сборке сервера и далее читается конкурентно без блокировок.
type Chain struct {
	handlers []Middleware
}

func NewChain() *Chain {
	return &Chain{}
}

// Use добавляет middleware в конец цепочки.
func (c *Chain) Use(m Middleware) {
	c.handlers = append(c.handlers, m)
}

// Process прогоняет запрос по цепочке в порядке регистрации. Первый
// ненулевой ответ обрывает цепочку; nil означает, что все middleware
// пропустили запрос дальше.
func (c *Chain) Process(req *models.Request) *models.Response {
	for _, h := range c.handlers {
		if resp := h(req); resp != nil {
			return resp
		}
	}
	return nil
}
