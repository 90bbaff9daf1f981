// Package agent периодически собирает системные метрики хоста и
// отправляет их на сервер фреймворка.
package agent

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/paxren/webserver/internal/config"
	"github.com/paxren/webserver/internal/hash"
)

// Sample — один снимок системных метрик.
type Sample struct {
	TS             int64   `json:"ts"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemTotal       uint64  `json:"mem_total"`
	MemUsed        uint64  `json:"mem_used"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

type Agent struct {
	host         config.HostAddress
	hashKey      string
	hashKeyBytes []byte
	sugar        *zap.SugaredLogger
	client       *http.Client

	mu   sync.Mutex
	last Sample
}

func NewAgent(host config.HostAddress, key string, sugar *zap.SugaredLogger) *Agent {
	var hashKeyBytes []byte
	if key != "" {
		hashKeyBytes = []byte(key)
	}
	return &Agent{
		host:         host,
		hashKey:      key,
		hashKeyBytes: hashKeyBytes,
		sugar:        sugar,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// poll снимает текущие показатели cpu и памяти.
func (a *Agent) poll() {
	sample := Sample{TS: time.Now().Unix()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		sample.CPUPercent = percents[0]
	} else if err != nil {
		a.sugar.Errorw("не удалось снять метрики cpu", "error", err)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		sample.MemTotal = vm.Total
		sample.MemUsed = vm.Used
		sample.MemUsedPercent = vm.UsedPercent
	} else {
		a.sugar.Errorw("не удалось снять метрики памяти", "error", err)
	}

	a.mu.Lock()
	a.last = sample
	a.mu.Unlock()
}

// makeRequest собирает запрос с gzip-телом и, при наличии ключа,
// подписью тела.
func (a *Agent) makeRequest(sample Sample) (*http.Request, error) {
	raw, err := json.Marshal(sample)
	if err != nil {
		return nil, err
	}

	var gzipped bytes.Buffer
	w := gzip.NewWriter(&gzipped)
	if _, err = w.Write(raw); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	body := gzipped.Bytes()

	request, err := http.NewRequest(http.MethodPost,
		"http://"+a.host.String()+"/api/telemetry", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set(`Content-Type`, `application/json`)
	request.Header.Set(`Content-Encoding`, `gzip`)

	if a.hashKeyBytes != nil {
		// подпись считается по байтам на проводе, т.е. по сжатому телу
		sum, err := hash.Sum(a.hashKeyBytes, body)
		if err != nil {
			return nil, err
		}
		request.Header.Set(`HashSHA256`, sum)
	}
	return request, nil
}

// report отправляет последний снимок на сервер.
func (a *Agent) report() error {
	a.mu.Lock()
	sample := a.last
	a.mu.Unlock()

	if sample.TS == 0 {
		return nil // ещё ни одного снимка
	}

	request, err := a.makeRequest(sample)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("сервер вернул статус %d", resp.StatusCode)
	}
	return nil
}

// Run крутит опрос и отправку до отмены контекста.
func (a *Agent) Run(ctx context.Context, pollInterval, reportInterval time.Duration) {
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()
	reportTicker := time.NewTicker(reportInterval)
	defer reportTicker.Stop()

	a.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			a.poll()
		case <-reportTicker.C:
			if err := a.report(); err != nil {
				a.sugar.Errorw("не удалось отправить метрики", "error", err)
			}
		}
	}
}
