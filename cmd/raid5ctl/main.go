package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Anthya1104/raid-simulator/internal/cli"
	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/Anthya1104/raid-simulator/internal/logger"
)

func main() {
	if err := logger.InitLogger(config.LogLevelInfo); err != nil {
		logrus.Fatalf("error initializing logger: %v", err)
	}

	if err := cli.ExecuteCmd(); err != nil {
		logrus.Errorf("error executing command: %v", err)
		os.Exit(1)
	}
}
