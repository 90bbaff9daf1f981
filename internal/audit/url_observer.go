package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// URLObserver отправляет события аудита POST-запросом на удалённый URL.
type URLObserver struct {
	*BaseObserver
	url string
}

// NewURLObserver создаёт наблюдателя с буфером по умолчанию (100 событий).
func NewURLObserver(url string) *URLObserver {
	return NewURLObserverWithBufferSize(url, 100)
}

func NewURLObserverWithBufferSize(url string, bufferSize int) *URLObserver {
	handler := &urlHandler{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	return &URLObserver{
		BaseObserver: NewBaseObserver(bufferSize, handler),
		url:          url,
	}
}

type urlHandler struct {
	url    string
	client *http.Client
}

func (h *urlHandler) Handle(event *Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	resp, err := h.client.Post(h.url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("приёмник аудита вернул статус %d", resp.StatusCode)
	}
	return nil
}
