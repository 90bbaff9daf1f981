package server

import "errors"

var errBufferLimit = errors.New("превышен предел размера буфера")

// buffer — растущий байтовый буфер с явным потолком ёмкости. Рост
// всегда удвоением и всегда перепроверяется относительно потолка:
// это единственное место движка, где происходит переаллокация под
// данные клиента.
type buffer struct {
	data  []byte
	len   int
	limit int
}

func newBuffer(initial, limit int) *buffer {
	if initial <= 0 {
		initial = 1024
	}
	if initial > limit {
		initial = limit
	}
	return &buffer{
		data:  make([]byte, initial),
		limit: limit,
	}
}

// ensure гарантирует ёмкость минимум n байт, удваивая её вплоть до
// потолка. Возвращает errBufferLimit, если n превышает потолок.
func (b *buffer) ensure(n int) error {
	if n <= len(b.data) {
		return nil
	}
	if n > b.limit {
		return errBufferLimit
	}
	newCap := len(b.data)
	for newCap < n {
		newCap *= 2
	}
	if newCap > b.limit {
		newCap = b.limit
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.len])
	b.data = grown
	return nil
}

// setLimit поднимает потолок (переход от лимита заголовков к лимиту
// тела).
func (b *buffer) setLimit(limit int) {
	b.limit = limit
}

// full сообщает, что свободного места не осталось.
func (b *buffer) full() bool {
	return b.len == len(b.data)
}

// space — свободная часть буфера под очередное чтение.
func (b *buffer) space() []byte {
	return b.data[b.len:]
}

// advance учитывает n прочитанных байт.
func (b *buffer) advance(n int) {
	b.len += n
}

// bytes — заполненная часть буфера.
func (b *buffer) bytes() []byte {
	return b.data[:b.len]
}
