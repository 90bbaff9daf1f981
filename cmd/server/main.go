package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paxren/webserver/internal/agent"
	"github.com/paxren/webserver/internal/audit"
	"github.com/paxren/webserver/internal/config"
	"github.com/paxren/webserver/internal/metrics"
	"github.com/paxren/webserver/internal/middleware"
	"github.com/paxren/webserver/internal/models"
	"github.com/paxren/webserver/internal/ratelimit"
	"github.com/paxren/webserver/internal/router"
	"github.com/paxren/webserver/internal/server"
	"github.com/paxren/webserver/internal/session"
)

var (
	serverConfig = config.NewServerConfig()
)

func init() {
	serverConfig.Init()
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("cannot initialize zap")
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	serverConfig.Parse()
	sugar.Infow("server config", "config", serverConfig)

	finish := make([]func() error, 0, 4)

	// хранилище сессий: Postgres при заданном DSN, иначе память
	var store session.Store
	if serverConfig.DatabaseDSN != "" {
		pstore, err := session.MakePostgresStore(
			serverConfig.DatabaseDSN,
			serverConfig.MigrationsPath,
			time.Duration(serverConfig.SessionTTL)*time.Second,
		)
		if err != nil {
			sugar.Errorw("cannot initialize postgres session store", "error", err)
			panic(err)
		}
		store = pstore
		finish = append(finish, pstore.Close)
	} else {
		store = session.MakeMemStore(time.Duration(serverConfig.SessionTTL) * time.Second)
	}

	limiter := ratelimit.NewLimiter(
		serverConfig.RateLimitTokens,
		serverConfig.RateLimitRPS/1000, // токенов в миллисекунду
	)
	aggregator := metrics.NewAggregator(int(serverConfig.MetricsCapacity))

	// цепочка middleware: порядок регистрации и есть порядок выполнения
	chain := middleware.NewChain()
	chain.Use(middleware.RequestID())
	chain.Use(middleware.WithLogging(sugar))
	if serverConfig.Key != "" {
		chain.Use(middleware.HashCheck(serverConfig.Key))
	}
	chain.Use(middleware.RateLimit(limiter, nil))
	chain.Use(middleware.SessionAttach(store))

	r := router.New()
	registerRoutes(r, store, aggregator, sugar)

	srv := server.NewServer(server.Options{
		Addr:              serverConfig.Address.String(),
		Backlog:           int(serverConfig.Backlog),
		InitialBufferSize: int(serverConfig.InitialBufferSize),
		MaxHeaderSize:     int(serverConfig.MaxHeaderSize),
		MaxBodySize:       int(serverConfig.MaxBodySize),
		ReadTimeout:       time.Duration(serverConfig.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(serverConfig.WriteTimeoutMS) * time.Millisecond,
	}, r, chain, aggregator, server.PlainTransport{}, sugar)

	if serverConfig.AuditFile != "" {
		obs := audit.NewFileObserver(serverConfig.AuditFile)
		srv.AddObserver(obs)
		finish = append(finish, func() error { obs.Close(); return nil })
	}
	if serverConfig.AuditURL != "" {
		obs := audit.NewURLObserver(serverConfig.AuditURL)
		srv.AddObserver(obs)
		finish = append(finish, func() error { obs.Close(); return nil })
	}

	// периодическая вычистка просроченных сессий
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				removed, err := store.CleanupExpired()
				if err != nil {
					sugar.Errorw("session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					sugar.Infow("expired sessions removed", "count", removed)
				}
			}
		}
	}()

	opsServer := startOpsServer(serverConfig.OpsAddress.String(), store, aggregator, sugar)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			sugar.Errorw("failed to serve listener", "error", err)
			panic(err)
		}
	}()
	sugar.Infow("server started",
		"addr", serverConfig.Address.String(),
		"ops", serverConfig.OpsAddress.String(),
	)

	<-rootCtx.Done()
	stop()
	srv.Close()
	opsServer.Shutdown(context.Background())
	for _, f := range finish {
		if err := f(); err != nil {
			sugar.Errorw("shutdown step failed", "error", err)
		}
	}
}

// registerRoutes наполняет роутер демонстрационным API поверх сервисов
// фреймворка.
func registerRoutes(r *router.Router, store session.Store, aggregator *metrics.Aggregator, sugar *zap.SugaredLogger) {
	r.AddRoute(models.MethodGet, "/ping", func(req *models.Request) *models.Response {
		return models.TextResponse(models.StatusOK, "pong")
	})

	r.AddRoute(models.MethodPost, "/api/sessions", func(req *models.Request) *models.Response {
		s, err := store.Create()
		if err != nil {
			sugar.Errorw("session create failed", "error", err)
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		return models.JSONResponse(models.StatusCreated, raw)
	})

	r.AddRoute(models.MethodGet, "/api/sessions/:id", func(req *models.Request) *models.Response {
		s, err := store.Get(req.PathParams["id"])
		if errors.Is(err, session.ErrSessionNotFound) {
			return models.ErrorResponse(models.StatusNotFound)
		}
		if err != nil {
			sugar.Errorw("session get failed", "error", err)
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		return models.JSONResponse(models.StatusOK, raw)
	})

	r.AddRoute(models.MethodDelete, "/api/sessions/:id", func(req *models.Request) *models.Response {
		if err := store.Delete(req.PathParams["id"]); err != nil {
			sugar.Errorw("session delete failed", "error", err)
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		return models.NewResponse(models.StatusNoContent, "text/plain", nil)
	})

	r.AddRoute(models.MethodPost, "/api/sessions/:id/values", func(req *models.Request) *models.Response {
		var kv struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(req.Body, &kv); err != nil || kv.Key == "" {
			return models.TextResponse(models.StatusBadRequest, "нужен JSON вида {\"key\":..., \"value\":...}")
		}
		s, err := store.Get(req.PathParams["id"])
		if errors.Is(err, session.ErrSessionNotFound) {
			return models.ErrorResponse(models.StatusNotFound)
		}
		if err != nil {
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		s.SetValue(kv.Key, kv.Value)
		if err := store.Save(s); err != nil {
			sugar.Errorw("session save failed", "error", err)
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		return models.NewResponse(models.StatusNoContent, "text/plain", nil)
	})

	r.AddRoute(models.MethodPost, "/api/echo", func(req *models.Request) *models.Response {
		ct := "application/octet-stream"
		if v, ok := req.Header("Content-Type"); ok {
			ct = v
		}
		return models.NewResponse(models.StatusOK, ct, req.Body)
	})

	r.AddRoute(models.MethodGet, "/api/stats", func(req *models.Request) *models.Response {
		raw, err := json.Marshal(aggregator.TakeSnapshot())
		if err != nil {
			return models.ErrorResponse(models.StatusInternalServerError)
		}
		return models.JSONResponse(models.StatusOK, raw)
	})

	r.AddRoute(models.MethodPost, "/api/telemetry", func(req *models.Request) *models.Response {
		body := req.Body
		if enc, _ := req.Header("Content-Encoding"); enc == "gzip" {
			zr, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				return models.TextResponse(models.StatusBadRequest, "некорректный gzip")
			}
			body, err = io.ReadAll(zr)
			if err != nil {
				return models.TextResponse(models.StatusBadRequest, "некорректный gzip")
			}
		}
		var sample agent.Sample
		if err := json.Unmarshal(body, &sample); err != nil {
			return models.TextResponse(models.StatusBadRequest, "некорректное тело")
		}
		sugar.Infow("telemetry sample",
			"cpu_percent", sample.CPUPercent,
			"mem_used_percent", sample.MemUsedPercent,
		)
		return models.NewResponse(models.StatusNoContent, "text/plain", nil)
	})
}

// startOpsServer поднимает отдельный служебный листенер на chi:
// диагностические эндпоинты не должны проходить через rate limiter и
// метрики основного сервера.
func startOpsServer(addr string, store session.Store, aggregator *metrics.Aggregator, sugar *zap.SugaredLogger) *http.Server {
	r := chi.NewRouter()

	r.Get(`/debug/metrics`, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(aggregator.TakeSnapshot()); err != nil {
			sugar.Errorw("ops metrics encode failed", "error", err)
		}
	})
	r.Get(`/debug/sessions`, func(w http.ResponseWriter, _ *http.Request) {
		n, err := store.Len()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"sessions": n})
	})

	opsServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Errorw("ops server failed", "error", err)
		}
	}()
	return opsServer
}
