package main

import (
	"github.com/lattice-kb/lattice/internal/server"
	"github.com/lattice-kb/lattice/internal/util"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
