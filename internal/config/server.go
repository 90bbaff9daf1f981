package config

import (
	"flag"
	"reflect"

	"github.com/caarlos0/env/v11"
)

// ServerConfigEnv — переменные окружения сервера. Разбираются отдельно
// от флагов: окружение побеждает, если переменная задана и разобралась.
type ServerConfigEnv struct {
	Address           HostAddress `env:"ADDRESS,notEmpty"`
	OpsAddress        HostAddress `env:"OPS_ADDRESS,notEmpty"`
	Backlog           uint64      `env:"BACKLOG,notEmpty"`
	InitialBufferSize uint64      `env:"INITIAL_BUFFER_SIZE,notEmpty"`
	MaxHeaderSize     uint64      `env:"MAX_HEADER_SIZE,notEmpty"`
	MaxBodySize       uint64      `env:"MAX_BODY_SIZE,notEmpty"`
	ReadTimeoutMS     uint64      `env:"READ_TIMEOUT_MS,notEmpty"`
	WriteTimeoutMS    uint64      `env:"WRITE_TIMEOUT_MS,notEmpty"`
	SessionTTL        uint64      `env:"SESSION_TTL,notEmpty"`
	RateLimitTokens   float64     `env:"RATE_LIMIT_TOKENS,notEmpty"`
	RateLimitRPS      float64     `env:"RATE_LIMIT_RPS,notEmpty"`
	MetricsCapacity   uint64      `env:"METRICS_CAPACITY,notEmpty"`
	DatabaseDSN       string      `env:"DATABASE_DSN,notEmpty"`
	MigrationsPath    string      `env:"MIGRATIONS_PATH,notEmpty"`
	Key               string      `env:"KEY,notEmpty"`
	AuditFile         string      `env:"AUDIT_FILE,notEmpty"`
	AuditURL          string      `env:"AUDIT_URL,notEmpty"`
}

// ServerConfig собирает итоговую конфигурацию сервера из переменных
// окружения и флагов командной строки.
type ServerConfig struct {
	envs ServerConfigEnv

	Address           HostAddress
	OpsAddress        HostAddress
	Backlog           uint64
	InitialBufferSize uint64
	MaxHeaderSize     uint64
	MaxBodySize       uint64
	ReadTimeoutMS     uint64
	WriteTimeoutMS    uint64
	SessionTTL        uint64
	RateLimitTokens   float64
	RateLimitRPS      float64
	MetricsCapacity   uint64
	DatabaseDSN       string
	MigrationsPath    string
	Key               string
	AuditFile         string
	AuditURL          string

	paramAddress           HostAddress
	paramOpsAddress        HostAddress
	paramBacklog           uint64
	paramInitialBufferSize uint64
	paramMaxHeaderSize     uint64
	paramMaxBodySize       uint64
	paramReadTimeoutMS     uint64
	paramWriteTimeoutMS    uint64
	paramSessionTTL        uint64
	paramRateLimitTokens   float64
	paramRateLimitRPS      float64
	paramMetricsCapacity   uint64
	paramDatabaseDSN       string
	paramMigrationsPath    string
	paramKey               string
	paramAuditFile         string
	paramAuditURL          string
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		paramAddress:    *NewHostAddress("localhost", 8080),
		paramOpsAddress: *NewHostAddress("localhost", 9090),
	}
}

// Init регистрирует флаги. Вызывается один раз до Parse.
func (se *ServerConfig) Init() {
	flag.Var(&se.paramAddress, "a", "адрес сервера host:port")
	flag.Var(&se.paramOpsAddress, "ops", "адрес ops-сервера host:port")
	flag.Uint64Var(&se.paramBacklog, "backlog", 128, "максимум одновременных соединений")
	flag.Uint64Var(&se.paramInitialBufferSize, "buf", 1024, "стартовый размер буфера чтения, байт")
	flag.Uint64Var(&se.paramMaxHeaderSize, "max-header", 8192, "предел размера заголовков, байт")
	flag.Uint64Var(&se.paramMaxBodySize, "max-body", 1<<20, "предел размера запроса, байт")
	flag.Uint64Var(&se.paramReadTimeoutMS, "read-timeout", 5000, "таймаут чтения, мс")
	flag.Uint64Var(&se.paramWriteTimeoutMS, "write-timeout", 5000, "таймаут записи, мс")
	flag.Uint64Var(&se.paramSessionTTL, "session-ttl", 1800, "время жизни сессии, с")
	flag.Float64Var(&se.paramRateLimitTokens, "rl-tokens", 100, "ёмкость bucket'а rate limiter'а")
	flag.Float64Var(&se.paramRateLimitRPS, "rl-rps", 10, "пополнение bucket'а, токенов в секунду")
	flag.Uint64Var(&se.paramMetricsCapacity, "metrics-cap", 100, "ёмкость кольца последних запросов")
	flag.StringVar(&se.paramDatabaseDSN, "d", "", "DSN PostgreSQL для хранилища сессий")
	flag.StringVar(&se.paramMigrationsPath, "migrations", "file://migrations", "путь к миграциям")
	flag.StringVar(&se.paramKey, "k", "", "ключ подписи HMAC")
	flag.StringVar(&se.paramAuditFile, "audit-file", "", "путь к файлу аудита")
	flag.StringVar(&se.paramAuditURL, "audit-url", "", "URL приёмника аудита")
}

// parseEnvs разбирает окружение и возвращает имена переменных, которые
// отсутствуют или не разобрались: для них остаются значения флагов.
func parseEnvs(target interface{}) map[string]bool {
	err := env.ParseWithOptions(target, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(HostAddress{}): func(v string) (interface{}, error) {
				ha := NewHostAddress("localhost", 8080)
				err := ha.Set(v)
				return *ha, err
			},
		},
	})

	problemVars := make(map[string]bool)
	if err == nil {
		return problemVars
	}

	agg, ok := err.(env.AggregateError)
	if !ok {
		return problemVars
	}
	for _, v := range agg.Errors {
		if e, ok := v.(env.EmptyVarError); ok {
			problemVars[e.Key] = true
		}
		if e, ok := v.(env.ParseError); ok {
			problemVars[e.Name] = true
		}
		if _, ok := v.(HostAddressParseError); ok {
			problemVars["ADDRESS"] = true
			problemVars["OPS_ADDRESS"] = true
		}
	}
	return problemVars
}

// Parse объединяет окружение и флаги: переменная окружения побеждает,
// если она задана и разобралась, иначе берётся значение флага.
func (se *ServerConfig) Parse() {
	problemVars := parseEnvs(&se.envs)
	flag.Parse()

	pick := func(envName string) bool {
		return !problemVars[envName]
	}

	if pick("ADDRESS") {
		se.Address = se.envs.Address
	} else {
		se.Address = se.paramAddress
	}
	if pick("OPS_ADDRESS") {
		se.OpsAddress = se.envs.OpsAddress
	} else {
		se.OpsAddress = se.paramOpsAddress
	}
	if pick("BACKLOG") {
		se.Backlog = se.envs.Backlog
	} else {
		se.Backlog = se.paramBacklog
	}
	if pick("INITIAL_BUFFER_SIZE") {
		se.InitialBufferSize = se.envs.InitialBufferSize
	} else {
		se.InitialBufferSize = se.paramInitialBufferSize
	}
	if pick("MAX_HEADER_SIZE") {
		se.MaxHeaderSize = se.envs.MaxHeaderSize
	} else {
		se.MaxHeaderSize = se.paramMaxHeaderSize
	}
	if pick("MAX_BODY_SIZE") {
		se.MaxBodySize = se.envs.MaxBodySize
	} else {
		se.MaxBodySize = se.paramMaxBodySize
	}
	if pick("READ_TIMEOUT_MS") {
		se.ReadTimeoutMS = se.envs.ReadTimeoutMS
	} else {
		se.ReadTimeoutMS = se.paramReadTimeoutMS
	}
	if pick("WRITE_TIMEOUT_MS") {
		se.WriteTimeoutMS = se.envs.WriteTimeoutMS
	} else {
		se.WriteTimeoutMS = se.paramWriteTimeoutMS
	}
	if pick("SESSION_TTL") {
		se.SessionTTL = se.envs.SessionTTL
	} else {
		se.SessionTTL = se.paramSessionTTL
	}
	if pick("RATE_LIMIT_TOKENS") {
		se.RateLimitTokens = se.envs.RateLimitTokens
	} else {
		se.RateLimitTokens = se.paramRateLimitTokens
	}
	if pick("RATE_LIMIT_RPS") {
		se.RateLimitRPS = se.envs.RateLimitRPS
	} else {
		se.RateLimitRPS = se.paramRateLimitRPS
	}
	if pick("METRICS_CAPACITY") {
		se.MetricsCapacity = se.envs.MetricsCapacity
	} else {
		se.MetricsCapacity = se.paramMetricsCapacity
	}
	if pick("DATABASE_DSN") {
		se.DatabaseDSN = se.envs.DatabaseDSN
	} else {
		se.DatabaseDSN = se.paramDatabaseDSN
	}
	if pick("MIGRATIONS_PATH") {
		se.MigrationsPath = se.envs.MigrationsPath
	} else {
		se.MigrationsPath = se.paramMigrationsPath
	}
	if pick("KEY") {
		se.Key = se.envs.Key
	} else {
		se.Key = se.paramKey
	}
	if pick("AUDIT_FILE") {
		se.AuditFile = se.envs.AuditFile
	} else {
		se.AuditFile = se.paramAuditFile
	}
	if pick("AUDIT_URL") {
		se.AuditURL = se.envs.AuditURL
	} else {
		se.AuditURL = se.paramAuditURL
	}
}
