package config

import "testing"

func TestHostAddressSet(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
		host    string
		port    int
	}{
		{name: "Localhost", value: "localhost:8080", host: "localhost", port: 8080},
		{name: "IP", value: "127.0.0.1:9090", host: "127.0.0.1", port: 9090},
		{name: "Empty host", value: ":8080", host: "", port: 8080},
		{name: "No port", value: "localhost", wantErr: true},
		{name: "Bad port", value: "localhost:http", wantErr: true},
		{name: "Bad host", value: "not a host:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := NewHostAddress("localhost", 8080)
			err := ha.Set(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ожидалась ошибка разбора %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if ha.Host != tt.host || ha.Port != tt.port {
				t.Errorf("получено %s:%d, ожидалось %s:%d", ha.Host, ha.Port, tt.host, tt.port)
			}
		})
	}
}

func TestHostAddressString(t *testing.T) {
	ha := NewHostAddress("localhost", 8080)
	if got := ha.String(); got != "localhost:8080" {
		t.Errorf("String: получено %q, ожидалось %q", got, "localhost:8080")
	}
}
