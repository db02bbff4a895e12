package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/hdckit"
	"github.com/hubertat/hdckit/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	log.SetLevel(log.DebugLevel)
	log.Info("hdckit started")
	log.Info("mock instance for testing puproses, no i2c bus needed")

	syncDuration := 5 * time.Second
	log.Info("sync", "duration", syncDuration)

	hk := &hdckit.HdcKit{
		Name:       "fake hdc1000",
		HkPin:      "88008800",
		HttpAddr:   ":8088",
		FakeSensor: &drivers.MockClimateSensor{Temperature: 21.37, Humidity: 44.44},
	}
	hk.SetDefaults()

	log.Info("will init sensors...")
	err := hk.InitSensors(nil)
	defer hk.Close()
	if err != nil {
		log.Fatal("failed to init sensors", "err", err)
	}

	hk.StartStatusServer()
	hk.SyncSensors(context.Background())
	hk.PrintStatus(os.Stdout)

	log.Info("starting mock with HomeKit service")

	go hk.StartTicker(context.Background(), syncDuration)

	hk.HkDirectory = "./mock_homekit"
	err = hk.StartHomeKit(context.Background(), "mock: "+Version)
	if err != nil {
		log.Fatal(err)
	}
}
