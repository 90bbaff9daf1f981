// Package router реализует выбор обработчика по методу и шаблону пути.
//
// Шаблоны состоят из сегментов, разделённых "/". Сегмент, начинающийся
// с ":", является захватом и совпадает с любым непустым сегментом пути;
// его значение записывается в PathParams запроса. Маршруты проверяются
// в порядке регистрации, побеждает первый структурно совпавший.
package router

import (
	"strings"

	"github.com/paxren/webserver/internal/models"
)

// Handler — контракт обработчика запроса.
type Handler func(*models.Request) *models.Response

type route struct {
	method   models.Method
	pattern  string
	segments []string
	handler  Handler
}

// Router хранит маршруты в порядке регистрации. Наполняется один раз
// при сборке сервера и далее читается конкурентно без блокировок.
type Router struct {
	routes []route
}

func New() *Router {
	return &Router{}
}

// AddRoute регистрирует маршрут. Уникальность шаблонов не проверяется:
// при дубликатах выигрывает зарегистрированный раньше.
func (r *Router) AddRoute(method models.Method, pattern string, handler Handler) {
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  pattern,
		segments: strings.Split(pattern, "/"),
		handler:  handler,
	})
}

// Match перебирает маршруты в порядке регистрации и возвращает первый
// структурно совпавший обработчик. Параметры пути извлекаются только
// для победившего маршрута.
func (r *Router) Match(req *models.Request) (Handler, bool) {
	// query-часть в сопоставлении не участвует
	path := req.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")

	for i := range r.routes {
		rt := &r.routes[i]
		if rt.method != req.Method {
			continue
		}
		if !matchSegments(rt.segments, segments) {
			continue
		}
		for j, ps := range rt.segments {
			if strings.HasPrefix(ps, ":") {
				req.PathParams[ps[1:]] = segments[j]
			}
		}
		return rt.handler, true
	}
	return nil, false
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i := range pattern {
		if strings.HasPrefix(pattern[i], ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if pattern[i] != path[i] {
			return false
		}
	}
	return true
}
