package hdckit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hubertat/hdckit/drivers"
	"github.com/pkg/errors"
)

const minTimeBetweenUpdates = 3 * time.Second

// heater burns off condensation for this long before first reading
const burnInDuration = 1 * time.Second

// SharedReading owns the sensor and caches its last temperature and humidity
// readings, so that all Sensors built on it share one physical read per
// minTimeBetweenUpdates.
type SharedReading struct {
	sensor drivers.ClimateSensor
	clock  clock.Clock

	temperatureResolution drivers.ResolutionCode
	humidityResolution    drivers.ResolutionCode

	lastRefresh time.Time
	temperature float64
	humidity    float64

	lock sync.Mutex
}

// NewSharedReading runs the heater burn-in cycle, seeds the cache and applies
// requested resolutions. Any driver error aborts it.
func NewSharedReading(sensor drivers.ClimateSensor, temperatureResolution, humidityResolution drivers.ResolutionCode, clk clock.Clock) (*SharedReading, error) {
	if clk == nil {
		clk = clock.New()
	}

	sr := &SharedReading{
		sensor:                sensor,
		clock:                 clk,
		temperatureResolution: temperatureResolution,
		humidityResolution:    humidityResolution,
	}

	err := sensor.TurnHeaterOn()
	if err != nil {
		return nil, errors.Wrapf(err, "burn-in failed on %s", sensor)
	}
	sr.clock.Sleep(burnInDuration)
	err = sensor.TurnHeaterOff()
	if err != nil {
		return nil, errors.Wrapf(err, "burn-in failed on %s", sensor)
	}

	err = sr.Refresh()
	if err != nil {
		return nil, errors.Wrap(err, "initial refresh failed")
	}

	err = sensor.SetTemperatureResolution(temperatureResolution)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s", sensor)
	}
	err = sensor.SetHumidityResolution(humidityResolution)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s", sensor)
	}

	return sr, nil
}

// Refresh reads both quantities from the sensor unless the cache is younger
// than minTimeBetweenUpdates. On error the cache is left untouched.
func (sr *SharedReading) Refresh() error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if !sr.lastRefresh.IsZero() && sr.clock.Since(sr.lastRefresh) < minTimeBetweenUpdates {
		return nil
	}

	temperature, err := sr.sensor.ReadTemperature()
	if err != nil {
		return errors.Wrapf(err, "failed to refresh %s", sr.sensor)
	}
	humidity, err := sr.sensor.ReadHumidity()
	if err != nil {
		return errors.Wrapf(err, "failed to refresh %s", sr.sensor)
	}

	sr.temperature = temperature
	sr.humidity = humidity
	sr.lastRefresh = sr.clock.Now()

	return nil
}

// Temperature returns cached temperature in °C.
func (sr *SharedReading) Temperature() float64 {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	return sr.temperature
}

// Humidity returns cached relative humidity in %.
func (sr *SharedReading) Humidity() float64 {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	return sr.humidity
}

func (sr *SharedReading) LastRefresh() time.Time {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	return sr.lastRefresh
}

func (sr *SharedReading) SensorName() string {
	return sr.sensor.String()
}

func (sr *SharedReading) Close() error {
	return sr.sensor.Close()
}
