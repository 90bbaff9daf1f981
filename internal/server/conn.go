package server

import (
	"bytes"
	"net"
	"strings"
	"time"

	"github.com/paxren/webserver/internal/audit"
	"github.com/paxren/webserver/internal/metrics"
	"github.com/paxren/webserver/internal/models"
)

var headerTerminator = []byte("\r\n\r\n")

// handleConn обрабатывает одно соединение от начала до конца:
// таймауты, сборка запроса, диспетчеризация, запись ответа, метрики.
// Вся память запроса живёт в рамках этого вызова.
func (s *Server) handleConn(rwc net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.sugar.Errorw("паника в обработчике соединения", "panic", r)
		}
		rwc.Close()
		<-s.sem
	}()

	now := time.Now()
	_ = rwc.SetReadDeadline(now.Add(s.opts.ReadTimeout))
	_ = rwc.SetWriteDeadline(now.Add(s.opts.WriteTimeout))

	// --- сборка заголовков ---
	buf := newBuffer(s.opts.InitialBufferSize, s.opts.MaxHeaderSize)
	headerEnd := -1
	for headerEnd < 0 {
		if buf.full() {
			if err := buf.ensure(buf.len + 1); err != nil {
				s.sugar.Infow("заголовки превышают предел",
					"limit", s.opts.MaxHeaderSize, "remote", rwc.RemoteAddr())
				s.reject(rwc, models.StatusHeadersTooLarge)
				return
			}
		}
		n, err := rwc.Read(buf.space())
		if err != nil || n == 0 {
			// оборванный или пустой запрос: соединение закрывается
			// без ответа
			s.sugar.Debugw("соединение оборвано до конца заголовков",
				"error", err, "remote", rwc.RemoteAddr())
			return
		}
		buf.advance(n)
		headerEnd = bytes.Index(buf.bytes(), headerTerminator)
	}
	headerLen := headerEnd + len(headerTerminator)

	// --- предварительный разбор ради Content-Length ---
	req, err := models.ParseRequest(buf.bytes())
	if err != nil {
		s.sugar.Infow("не удалось разобрать запрос", "error", err)
		s.reject(rwc, models.StatusBadRequest)
		return
	}

	// --- дочитывание тела ---
	contentLength := req.ContentLength()
	total := headerLen + contentLength
	if total > s.opts.MaxBodySize {
		s.sugar.Infow("тело превышает предел",
			"declared", contentLength, "limit", s.opts.MaxBodySize)
		s.reject(rwc, models.StatusPayloadTooLarge)
		return
	}
	buf.setLimit(s.opts.MaxBodySize)
	if err = buf.ensure(total); err != nil {
		s.reject(rwc, models.StatusPayloadTooLarge)
		return
	}
	for buf.len < total {
		n, err := rwc.Read(buf.data[buf.len:total])
		if err != nil || n == 0 {
			s.sugar.Debugw("соединение оборвано до конца тела",
				"error", err, "read", buf.len, "want", total)
			return
		}
		buf.advance(n)
	}

	// --- окончательный разбор полного диапазона ---
	// лишние байты за заявленной длиной игнорируются: соединение всё
	// равно закрывается после одного ответа
	req, err = models.ParseRequest(buf.bytes()[:total])
	if err != nil {
		s.reject(rwc, models.StatusBadRequest)
		return
	}
	if req.Method == models.MethodUnknown {
		s.reject(rwc, models.StatusBadRequest)
		return
	}
	req.RemoteAddr = rwc.RemoteAddr().String()
	req.Start = time.Now()

	// --- диспетчеризация и запись ответа ---
	resp := s.dispatch(req)
	if err = s.writeResponse(rwc, resp); err != nil {
		// после неудачной записи никаких попыток ответить
		s.sugar.Debugw("не удалось записать ответ", "error", err)
		return
	}

	duration := time.Since(req.Start)
	s.finish(req, resp, duration)
}

// dispatch прогоняет запрос через цепочку middleware и роутер. Паника
// обработчика или middleware не валит процесс: она конвертируется
// в 500, а соединение закрывается штатно.
func (s *Server) dispatch(req *models.Request) (resp *models.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.sugar.Errorw("паника при обработке запроса",
				"panic", r, "method", req.Method, "path", req.Path)
			resp = models.ErrorResponse(models.StatusInternalServerError)
		}
	}()

	if resp = s.chain.Process(req); resp != nil {
		return resp
	}
	handler, ok := s.router.Match(req)
	if !ok {
		return models.ErrorResponse(models.StatusNotFound)
	}
	resp = handler(req)
	if resp == nil {
		// обработчик обязан вернуть ответ
		resp = models.ErrorResponse(models.StatusInternalServerError)
	}
	return resp
}

// reject отвечает кодом ошибки на запрос, который не будет обработан.
// Перед закрытием недочитанный вход коротко вычитывается: закрытие
// сокета с непрочитанными данными приводит к RST, и клиент может не
// успеть получить сам ответ.
func (s *Server) reject(rwc net.Conn, status models.StatusCode) {
	if err := s.writeResponse(rwc, models.ErrorResponse(status)); err != nil {
		return
	}
	_ = rwc.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	drain := make([]byte, 1024)
	for {
		if _, err := rwc.Read(drain); err != nil {
			return
		}
	}
}

// writeResponse сериализует ответ и пишет его целиком, дописывая
// частично записанные куски.
func (s *Server) writeResponse(rwc net.Conn, resp *models.Response) error {
	raw := resp.Serialize()
	for len(raw) > 0 {
		n, err := rwc.Write(raw)
		if err != nil {
			return err
		}
		raw = raw[n:]
	}
	return nil
}

// finish учитывает метрику завершённого запроса, уведомляет аудит и
// логирует итог.
func (s *Server) finish(req *models.Request, resp *models.Response, duration time.Duration) {
	path := req.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if s.agg != nil {
		s.agg.Record(metrics.RequestMetric{
			Path:       path,
			Method:     req.Method,
			Start:      req.Start,
			DurationMS: duration.Milliseconds(),
			Status:     resp.Status,
		})
	}

	if len(s.observers) > 0 {
		host := req.RemoteAddr
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		event := audit.NewEvent(string(req.Method), path, int(resp.Status), req.RequestID, host)
		for _, o := range s.observers {
			if err := o.Notify(event); err != nil {
				s.sugar.Debugw("событие аудита отброшено", "error", err)
			}
		}
	}

	s.sugar.Infow(
		"request completed",
		"method", req.Method,
		"path", path,
		"status", int(resp.Status),
		"duration", duration,
		"request_id", req.RequestID,
	)
}
