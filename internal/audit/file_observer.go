package audit

import (
	"encoding/json"
	"os"
)

// FileObserver записывает события аудита в файл, по одному JSON-объекту
// на строку.
type FileObserver struct {
	*BaseObserver
	filePath string
}

// NewFileObserver создаёт наблюдателя с буфером по умолчанию (100 событий).
func NewFileObserver(filePath string) *FileObserver {
	return NewFileObserverWithBufferSize(filePath, 100)
}

func NewFileObserverWithBufferSize(filePath string, bufferSize int) *FileObserver {
	handler := &fileHandler{filePath: filePath}
	return &FileObserver{
		BaseObserver: NewBaseObserver(bufferSize, handler),
		filePath:     filePath,
	}
}

type fileHandler struct {
	filePath string
}

// Handle дописывает событие в конец файла.
func (h *fileHandler) Handle(event *Event) error {
	f, err := os.OpenFile(h.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = f.Write(raw)
	return err
}
