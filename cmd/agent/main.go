package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/paxren/webserver/internal/agent"
	"github.com/paxren/webserver/internal/config"
)

var (
	agentConfig = config.NewAgentConfig()
)

func init() {
	agentConfig.Init()
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("cannot initialize zap")
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	agentConfig.Parse()
	sugar.Infow("agent config", "config", agentConfig)

	a := agent.NewAgent(agentConfig.Address, agentConfig.Key, sugar)
	a.Run(rootCtx,
		time.Duration(agentConfig.PollInterval)*time.Second,
		time.Duration(agentConfig.ReportInterval)*time.Second,
	)
}
