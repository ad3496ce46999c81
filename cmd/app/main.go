package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/autogarden"
)

const defaultSyncInterval = "1m"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	syncInterval = flag.String("sync", defaultSyncInterval, "moisture check interval (time.Duration)")
	debug        = flag.Bool("debug", false, "verbose logging")

	agService = servicemaker.ServiceMaker{
		User:               "autogarden",
		UserGroups:         []string{"gpio", "i2c", "dialout"},
		ServicePath:        "/etc/systemd/system/autogarden.service",
		ServiceDescription: "AutoGarden service: moisture driven irrigation controller. github.com/hubertat/autogarden",
		ExecDir:            "/srv/autogarden",
		ExecName:           "autogarden",
	}
)

func loadConfig(path string) (*autogarden.AutoGarden, error) {
	configFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer configFile.Close()

	buff, err := io.ReadAll(configFile)
	if err != nil {
		return nil, err
	}

	ag := &autogarden.AutoGarden{}
	err = json.Unmarshal(buff, ag)
	return ag, err
}

func main() {
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("autogarden started", "version", Version, "build", Build)

	if *flagInstall {
		err := agService.InstallService()
		if err != nil {
			log.Fatal("service install failed", "err", err)
		}
		log.Info("service installed!")
		return
	}

	interval, err := time.ParseDuration(*syncInterval)
	if err != nil {
		log.Fatal("invalid sync interval", "err", err)
	}

	ag, err := loadConfig(*config)
	if err != nil {
		log.Fatal("failed to load config file", "path", *config, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = ag.Init(ctx)
	defer ag.Close()
	if err != nil {
		log.Fatal("init failed", "err", err)
	}
	ag.PrintTree(os.Stdout)

	if ag.Influx != nil {
		err = ag.Influx.Setup()
		if err != nil {
			log.Error("influx telemetry disabled", "err", err)
		}
	}

	if len(ag.MqttBroker) > 0 {
		err = ag.InitMqtt(ctx)
		if err != nil {
			log.Error("mqtt disabled", "err", err)
		}
	}

	err = ag.Run(ctx, interval, Version)
	if err != nil {
		log.Error("stopped", "err", err)
	}
}
