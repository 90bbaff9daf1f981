// Package audit — асинхронная запись событий о обработанных запросах.
package audit

import (
	"errors"
	"sync"
	"time"
)

// Event — одно событие аудита.
type Event struct {
	TS        int64  `json:"ts"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// NewEvent создаёт событие с текущей временной меткой.
func NewEvent(method, path string, status int, requestID, ip string) *Event {
	return &Event{
		TS:        time.Now().Unix(),
		Method:    method,
		Path:      path,
		Status:    status,
		RequestID: requestID,
		IPAddress: ip,
	}
}

type Observer interface {
	Notify(event *Event) error
}

// EventHandler — конечная запись события (в файл, на URL и т.п.).
type EventHandler interface {
	Handle(event *Event) error
}

// BaseObserver управляет очередью событий и горутиной их обработки.
// Конкретные наблюдатели (файл, URL) отличаются только EventHandler'ом.
type BaseObserver struct {
	eventChan chan *Event
	done      chan struct{}
	wg        sync.WaitGroup
	handler   EventHandler
}

// NewBaseObserver создаёт наблюдателя с буфером bufferSize и запускает
// горутину обработки.
func NewBaseObserver(bufferSize int, handler EventHandler) *BaseObserver {
	b := &BaseObserver{
		eventChan: make(chan *Event, bufferSize),
		done:      make(chan struct{}),
		handler:   handler,
	}
	b.wg.Add(1)
	go b.processEvents()
	return b
}

// Notify ставит событие в очередь. При переполненной очереди событие
// отбрасывается с ошибкой: аудит не должен тормозить обработку запросов.
func (b *BaseObserver) Notify(event *Event) error {
	select {
	case b.eventChan <- event:
		return nil
	default:
		return errors.New("очередь аудита переполнена")
	}
}

func (b *BaseObserver) processEvents() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.eventChan:
			_ = b.handler.Handle(event)
		case <-b.done:
			// дочитываем накопившееся перед выходом
			for {
				select {
				case event := <-b.eventChan:
					_ = b.handler.Handle(event)
				default:
					return
				}
			}
		}
	}
}

// Close останавливает горутину обработки, дождавшись очереди.
func (b *BaseObserver) Close() {
	close(b.done)
	b.wg.Wait()
}
