package server

import (
	"crypto/tls"
	"net"
)

// Transport оборачивает принятое TCP-соединение. Движок написан только
// против этого контракта: чтение, запись и дедлайны идут через
// возвращённый net.Conn с той же блокирующей семантикой, что и у
// сырого сокета.
type Transport interface {
	Wrap(conn net.Conn) (net.Conn, error)
}

// PlainTransport пропускает соединение как есть.
type PlainTransport struct{}

func (PlainTransport) Wrap(conn net.Conn) (net.Conn, error) {
	return conn, nil
}

// TLSTransport выполняет серверный TLS-хендшейк поверх принятого
// соединения средствами crypto/tls.
type TLSTransport struct {
	Config *tls.Config
}

func (t TLSTransport) Wrap(conn net.Conn) (net.Conn, error) {
	return tls.Server(conn, t.Config), nil
}
