package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/hdckit"
)

const defaultSyncInterval = "10s"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	flagDebug    = flag.Bool("debug", false, "enable debug logging")
	syncInterval = flag.String("sync", defaultSyncInterval, "sensors sync interval (time.Duration)")

	hdcService = servicemaker.ServiceMaker{
		User:               "hdckit",
		UserGroups:         []string{"i2c"},
		ServicePath:        "/etc/systemd/system/hdckit.service",
		ServiceDescription: "HdcKit service: HomeKit enabled HDC1000 temperature and humidity sensor. github.com/hubertat/hdckit",
		ExecDir:            "/srv/hdckit",
		ExecName:           "hdckit",
	}
)

func main() {
	flag.Parse()
	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("hdckit started", "version", Version, "build", Build)

	if *flagInstall {
		err := hdcService.InstallService()
		if err != nil {
			log.Fatal("failed to install service", "err", err)
		}
		log.Info("service installed!")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		log.Fatal("invalid sync interval", "sync", *syncInterval, "err", err)
	}

	hk, err := hdckit.LoadConfig(*config)
	if err != nil {
		log.Fatal("can't load config, will terminate", "config", *config, "err", err)
	}

	log.Info("will init hdc1000 sensor...", "bus", hk.I2cBus, "address", hk.I2cAddress)
	err = hk.InitSensors(nil)
	defer hk.Close()
	if err != nil {
		log.Fatal("failed to init sensors", "err", err)
	}

	if len(hk.MqttBroker) > 0 {
		err = hk.InitMqtt(ctx)
		if err != nil {
			log.Error("mqtt init failed, we will proceed without it", "err", err)
		}
	}

	if hk.Influx != nil {
		err = hk.Influx.Setup(ctx)
		if err != nil {
			log.Error("influx init failed, we will proceed without it", "err", err)
		}
	}

	if len(hk.HttpAddr) > 0 {
		log.Info("starting status server", "addr", hk.HttpAddr)
		hk.StartStatusServer()
	}

	err = hk.SyncSensors(ctx)
	if err != nil {
		log.Error("first sync failed", "err", err)
	}
	hk.PrintStatus(os.Stdout)

	if len(hk.HkPin) == 8 {
		log.Info("Starting with HomeKit server")

		go hk.StartTicker(ctx, syncDuration)
		err = hk.StartHomeKit(ctx, Version)
		if err != nil {
			log.Error("HomeKit server stopped", "err", err)
		}
	} else {
		log.Info("HomeKit not configured, disabled")
		hk.StartTicker(ctx, syncDuration)
	}
}
