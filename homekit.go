package hdckit

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"syscall"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	hklog "github.com/brutella/hap/log"
	"github.com/brutella/hap/service"
	"github.com/pkg/errors"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "hdckit"
const homeKitBridgeAuthor = "github.com/hubertat"

const hdcMinimumTemperature = -40
const hdcMaximumTemperature = 125

// HkSensor exposes Sensor as HomeKit accessory. HomeKit always gets °C.
type HkSensor struct {
	sensor *Sensor

	hkA           *accessory.A
	temperature   *characteristic.CurrentTemperature
	humidity      *characteristic.CurrentRelativeHumidity
	hkStatusFault *characteristic.StatusFault
}

func NewHkSensor(s *Sensor, driverName string) *HkSensor {
	hs := &HkSensor{sensor: s}

	info := accessory.Info{
		Name:         s.Name(),
		SerialNumber: fmt.Sprintf("%s:%s", driverName, s.Kind()),
		Manufacturer: "Texas Instruments",
		Model:        "HDC1000",
	}

	hs.hkStatusFault = characteristic.NewStatusFault()
	hs.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)

	switch s.Kind() {
	case KindTemperature:
		thermometer := accessory.NewTemperatureSensor(info)
		thermometer.TempSensor.CurrentTemperature.SetMinValue(hdcMinimumTemperature)
		thermometer.TempSensor.CurrentTemperature.SetMaxValue(hdcMaximumTemperature)
		thermometer.TempSensor.AddC(hs.hkStatusFault.C)
		hs.temperature = thermometer.TempSensor.CurrentTemperature
		hs.hkA = thermometer.A
	case KindHumidity:
		hs.hkA = accessory.New(info, accessory.TypeSensor)
		humiditySensor := service.NewHumiditySensor()
		humiditySensor.AddC(hs.hkStatusFault.C)
		hs.hkA.AddS(humiditySensor.S)
		hs.humidity = humiditySensor.CurrentRelativeHumidity
	}

	return hs
}

func (hs *HkSensor) GetHk() *accessory.A {
	return hs.hkA
}

func (hs *HkSensor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("HkSensor_" + hs.sensor.Name()))
	return hash.Sum64()
}

// Sync copies sensor state into characteristics, updateErr marks accessory as faulty.
func (hs *HkSensor) Sync(updateErr error) {
	value, ok := hs.sensor.State()
	if updateErr != nil || !ok {
		hs.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
		return
	}

	hs.hkStatusFault.SetValue(characteristic.StatusFaultNoFault)
	switch hs.sensor.Kind() {
	case KindTemperature:
		hs.temperature.SetValue(hs.sensor.Celsius())
	case KindHumidity:
		hs.humidity.SetValue(value)
	}
}

func (hk *HdcKit) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, hs := range hk.hkSensors {
		a := hs.GetHk()
		if a.Info != nil && a.Info.FirmwareRevision != nil {
			a.Info.FirmwareRevision.SetValue(firmwareVersion)
		}
		a.Id = hs.GetUniqueId()
		acc = append(acc, a)
	}

	return
}

func (hk *HdcKit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := hk.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(hk.HkDirectory) > 1 {
		store = hap.NewFsStore(hk.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, hk.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = hk.HkPin
	if len(hk.HkAddress) > 0 {
		hkServer.Addr = hk.HkAddress
	}

	if hk.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c:
		case <-ctx.Done():
		}
		signal.Stop(c)
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}
