package config

import (
	"net"
	"strconv"
	"strings"
)

type HostAddressParseError struct {
	message string
}

func (e HostAddressParseError) Error() string {
	return e.message
}

// HostAddress — адрес host:port, пригодный как flag.Value.
type HostAddress struct {
	Host string
	Port int
}

func NewHostAddress(host string, port int) *HostAddress {
	return &HostAddress{
		Host: host,
		Port: port,
	}
}

func (a HostAddress) String() string {
	return a.Host + ":" + strconv.Itoa(a.Port)
}

func (a *HostAddress) Set(s string) error {
	hp := strings.Split(s, ":")
	if len(hp) != 2 {
		return HostAddressParseError{message: "нужен адрес в форме host:port"}
	}
	port, err := strconv.Atoi(hp[1])
	if err != nil {
		return HostAddressParseError{message: err.Error()}
	}

	if hp[0] != "localhost" && hp[0] != "" {
		ip := net.ParseIP(hp[0])
		if ip == nil {
			return HostAddressParseError{message: "нужен host в виде ip или строки localhost"}
		}
	}
	a.Host = hp[0]
	a.Port = port
	return nil
}
