package main

// Инициация уровня логирования в текущем процессе

import (
	"github.com/go-trading/rebal"
	"github.com/go-trading/rebal/paper"
	"go.uber.org/zap"
)

var l *zap.Logger

func init() {
	logger, _ := zap.NewProduction()
	l = logger
}

func initDebugLogger() {
	logger, _ := zap.NewDevelopment()
	l = logger
	rebal.SetLogger(l)
	paper.SetLogger(l)
}
