package middleware

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/paxren/webserver/internal/hash"
	"github.com/paxren/webserver/internal/models"
	"github.com/paxren/webserver/internal/ratelimit"
	"github.com/paxren/webserver/internal/session"
)

// RequestID присваивает каждому запросу идентификатор из временной
// метки и монотонного счётчика.
func RequestID() Middleware {
	var counter atomic.Uint64
	return func(req *models.Request) *models.Response {
		n := counter.Add(1)
		req.RequestID = strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36)
		return nil
	}
}

// WithLogging логирует входящий запрос. Завершение запроса со статусом
// и длительностью логирует движок соединения.
func WithLogging(sugar *zap.SugaredLogger) Middleware {
	return func(req *models.Request) *models.Response {
		sugar.Infow(
			"incoming request",
			"method", req.Method,
			"path", req.Path,
			"request_id", req.RequestID,
			"remote", req.RemoteAddr,
		)
		return nil
	}
}

// RateLimit отклоняет запрос со статусом 429, если bucket ключа пуст.
// Ключ по умолчанию — host из адреса клиента.
func RateLimit(limiter *ratelimit.Limiter, keyFn func(*models.Request) string) Middleware {
	if keyFn == nil {
		keyFn = func(req *models.Request) string {
			host, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				return req.RemoteAddr
			}
			return host
		}
	}
	return func(req *models.Request) *models.Response {
		if limiter.Allow(keyFn(req)) {
			return nil
		}
		resp := models.ErrorResponse(models.StatusTooManyRequests)
		resp.SetHeader("Retry-After", "1")
		return resp
	}
}

// SessionAttach проверяет заголовок X-Session-ID по хранилищу и
// записывает валидный id в запрос. Отсутствующая или просроченная
// сессия не обрывает обработку: сервис защитный, а не обязательный.
func SessionAttach(store session.Store) Middleware {
	return func(req *models.Request) *models.Response {
		id, ok := req.Header("X-Session-ID")
		if !ok || id == "" {
			return nil
		}
		if _, err := store.Get(id); err != nil {
			// и "не найдена", и ошибка хранилища деградируют до
			// "пропустить": сервис не должен блокировать запрос
			return nil
		}
		req.SessionID = id
		return nil
	}
}

// HashCheck сверяет подпись HashSHA256 с HMAC-SHA256 тела запроса.
// Запросы без подписи пропускаются, запросы с неверной подписью
// получают 400.
func HashCheck(key string) Middleware {
	keyBytes := []byte(key)
	return func(req *models.Request) *models.Response {
		got, ok := req.Header("HashSHA256")
		if !ok || got == "" {
			return nil
		}
		want, err := hash.Sum(keyBytes, req.Body)
		if err != nil {
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		if !hash.Equal(got, want) {
			return models.TextResponse(models.StatusBadRequest, "неверная подпись запроса")
		}
		return nil
	}
}
