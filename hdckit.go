package hdckit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/hdckit/drivers"
	"github.com/hubertat/hdckit/mqtt"
)

const disconnectTimeout = 3 * time.Second

type HdcKit struct {
	Name                  string
	I2cAddress            string
	I2cBus                int
	MonitoredConditions   []string
	HumidityResolution    int
	TemperatureResolution int
	TemperatureUnit       string

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string
	MqttTopic  string

	Influx   *drivers.InfluxWriter
	HttpAddr string

	// replaces hdc1000 on i2c bus when set
	FakeSensor *drivers.MockClimateSensor

	reading      *SharedReading
	sensors      []*Sensor
	hkSensors    []*HkSensor
	mqttClient   *mqtt.MqttClient
	publisher    mqtt.Publisher
	statusServer *http.Server
	logger       *log.Logger
	clock        clock.Clock
	ticker       *clock.Ticker
}

func (hk *HdcKit) getLogger() *log.Logger {
	if hk.logger == nil {
		hk.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix:          "hdckit: ",
			Level:           log.GetLevel(),
			ReportTimestamp: true,
		})
	}
	return hk.logger
}

func (hk *HdcKit) getClock() clock.Clock {
	if hk.clock == nil {
		hk.clock = clock.New()
	}
	return hk.clock
}

func (hk *HdcKit) openSensor() (drivers.ClimateSensor, error) {
	if hk.FakeSensor != nil {
		return hk.FakeSensor, nil
	}

	hdc, err := drivers.OpenHdc1000(hk.I2cBus, hk.I2cAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open hdc1000 (bus %d, address %s)", hk.I2cBus, hk.I2cAddress)
	}

	hk.getLogger().Info("found hdc1000",
		"manufacturer", fmt.Sprintf("0x%04X", hdc.ManufacturerId()),
		"device", fmt.Sprintf("0x%04X", hdc.DeviceId()),
		"serial", fmt.Sprintf("0x%X", hdc.SerialNumber()))

	return hdc, nil
}

// InitSensors opens the sensor, runs burn-in and creates one Sensor per
// monitored condition. Unknown conditions are skipped. clk may be nil.
func (hk *HdcKit) InitSensors(clk clock.Clock) error {
	logger := hk.getLogger()
	if clk != nil {
		hk.clock = clk
	}

	unit, err := NormalizeTemperatureUnit(hk.TemperatureUnit)
	if err != nil {
		return err
	}
	temperatureCode, humidityCode, err := hk.resolutionCodes()
	if err != nil {
		return err
	}

	sensor, err := hk.openSensor()
	if err != nil {
		return err
	}

	logger.Info("burn-in and initial read", "sensor", sensor)
	hk.reading, err = NewSharedReading(sensor, temperatureCode, humidityCode, hk.getClock())
	if err != nil {
		sensor.Close()
		return errors.Wrap(err, "failed to init shared reading")
	}

	hk.sensors = nil
	hk.hkSensors = nil
	for _, condition := range hk.MonitoredConditions {
		s, err := NewSensor(hk.reading, Kind(strings.ToLower(condition)), unit, hk.Name)
		if errors.Is(err, ErrUnknownKind) {
			logger.Debug("skipping monitored condition", "condition", condition)
			continue
		}
		if err != nil {
			return err
		}

		hk.sensors = append(hk.sensors, s)
		hk.hkSensors = append(hk.hkSensors, NewHkSensor(s, hk.reading.SensorName()))
	}

	return nil
}

func (hk *HdcKit) Sensors() []*Sensor {
	return hk.sensors
}

func (hk *HdcKit) lastRefresh() time.Time {
	if hk.reading == nil {
		return time.Time{}
	}
	return hk.reading.LastRefresh()
}

// SyncSensors updates every sensor and pushes states to HomeKit, mqtt and influx.
func (hk *HdcKit) SyncSensors(ctx context.Context) error {
	var failed []string

	for ix, s := range hk.sensors {
		err := s.Update()
		hk.hkSensors[ix].Sync(err)
		if err != nil {
			failed = append(failed, err.Error())
		}
	}

	ts := hk.lastRefresh()

	err := hk.publishMqtt(ts)
	if err != nil {
		failed = append(failed, err.Error())
	}

	err = hk.writeInflux(ctx, ts)
	if err != nil {
		failed = append(failed, err.Error())
	}

	if len(failed) > 0 {
		return errors.Errorf("sync failed:\n%s", strings.Join(failed, "\n"))
	}

	return nil
}

// StartTicker syncs sensors every interval until ctx is done.
func (hk *HdcKit) StartTicker(ctx context.Context, interval time.Duration) {
	hk.ticker = hk.getClock().Ticker(interval)
	defer hk.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.ticker.C:
			err := hk.SyncSensors(ctx)
			if err != nil {
				hk.getLogger().Error("Received error(s) from syncing sensors", "err", err)
			}
		}
	}
}

func (hk *HdcKit) Close() (err error) {
	if hk.statusServer != nil {
		err = hk.statusServer.Close()
	}

	if hk.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		closeErr := hk.mqttClient.Disconnect(ctx)
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to disconnect mqtt")
		}
	}

	if hk.Influx != nil {
		hk.Influx.Close()
	}

	if hk.reading != nil {
		closeErr := hk.reading.Close()
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close sensor")
		}
	}

	return
}

func (hk *HdcKit) PrintStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== hdckit sensors ===")
	if hk.reading != nil {
		fmt.Fprintf(writer, "| driver: %s\n", hk.reading.SensorName())
		fmt.Fprintf(writer, "| resolution: temperature %d bit, humidity %d bit\n", hk.TemperatureResolution, hk.HumidityResolution)
	}
	for _, s := range hk.sensors {
		value, ok := s.State()
		if ok {
			fmt.Fprintf(writer, "| %s: %.1f %s\n", s.Name(), value, s.UnitOfMeasurement())
		} else {
			fmt.Fprintf(writer, "| %s: -\n", s.Name())
		}
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
