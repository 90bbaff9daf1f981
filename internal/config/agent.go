package config

import "flag"

// AgentConfigEnv — переменные окружения агента.
type AgentConfigEnv struct {
	Address        HostAddress `env:"ADDRESS,notEmpty"`
	PollInterval   uint64      `env:"POLL_INTERVAL,notEmpty"`
	ReportInterval uint64      `env:"REPORT_INTERVAL,notEmpty"`
	Key            string      `env:"KEY,notEmpty"`
}

// AgentConfig — конфигурация агента системных метрик.
type AgentConfig struct {
	envs AgentConfigEnv

	Address        HostAddress
	PollInterval   uint64
	ReportInterval uint64
	Key            string

	paramAddress        HostAddress
	paramPollInterval   uint64
	paramReportInterval uint64
	paramKey            string
}

func NewAgentConfig() *AgentConfig {
	return &AgentConfig{
		paramAddress: *NewHostAddress("localhost", 8080),
	}
}

func (ae *AgentConfig) Init() {
	flag.Var(&ae.paramAddress, "a", "адрес сервера host:port")
	flag.Uint64Var(&ae.paramPollInterval, "p", 2, "интервал опроса системных метрик, с")
	flag.Uint64Var(&ae.paramReportInterval, "r", 10, "интервал отправки на сервер, с")
	flag.StringVar(&ae.paramKey, "k", "", "ключ подписи HMAC")
}

func (ae *AgentConfig) Parse() {
	problemVars := parseEnvs(&ae.envs)
	flag.Parse()

	if !problemVars["ADDRESS"] {
		ae.Address = ae.envs.Address
	} else {
		ae.Address = ae.paramAddress
	}
	if !problemVars["POLL_INTERVAL"] {
		ae.PollInterval = ae.envs.PollInterval
	} else {
		ae.PollInterval = ae.paramPollInterval
	}
	if !problemVars["REPORT_INTERVAL"] {
		ae.ReportInterval = ae.envs.ReportInterval
	} else {
		ae.ReportInterval = ae.paramReportInterval
	}
	if !problemVars["KEY"] {
		ae.Key = ae.envs.Key
	} else {
		ae.Key = ae.paramKey
	}
}
