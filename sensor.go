package hdckit

import (
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
)

const (
	TempCelsius    = "°C"
	TempFahrenheit = "°F"
	UnitPercentage = "%"
)

var ErrUnknownKind = errors.New("unknown sensor kind")

var kindLabels = map[Kind]string{
	KindTemperature: "Temperature",
	KindHumidity:    "Humidity",
}

// Entity is what the bridge publishes: a named value with a unit, refreshed by Update.
type Entity interface {
	Name() string
	Kind() Kind
	State() (value float64, ok bool)
	UnitOfMeasurement() string
	Update() error
}

// Sensor reports one quantity of a SharedReading, rounded to 0.1.
type Sensor struct {
	clientName string
	kind       Kind
	unit       string
	reading    *SharedReading

	state    float64
	celsius  float64
	hasState bool
	lock     sync.Mutex
}

// NewSensor returns ErrUnknownKind for kinds other than temperature and humidity.
// temperatureUnit is used only by temperature sensors.
func NewSensor(reading *SharedReading, kind Kind, temperatureUnit string, clientName string) (*Sensor, error) {
	s := &Sensor{
		clientName: clientName,
		kind:       kind,
		reading:    reading,
	}

	switch kind {
	case KindTemperature:
		unit, err := NormalizeTemperatureUnit(temperatureUnit)
		if err != nil {
			return nil, err
		}
		s.unit = unit
	case KindHumidity:
		s.unit = UnitPercentage
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "cannot create sensor %q", kind)
	}

	return s, nil
}

func (s *Sensor) Name() string {
	return s.clientName + " " + kindLabels[s.kind]
}

func (s *Sensor) Kind() Kind {
	return s.kind
}

func (s *Sensor) UnitOfMeasurement() string {
	return s.unit
}

func (s *Sensor) State() (float64, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.state, s.hasState
}

// Celsius returns last reported temperature in °C, regardless of display unit.
func (s *Sensor) Celsius() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.celsius
}

// Update refreshes the shared reading (subject to its throttle) and copies
// the relevant value. On error previous state is kept.
func (s *Sensor) Update() error {
	err := s.reading.Refresh()
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", s.Name())
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	switch s.kind {
	case KindTemperature:
		s.celsius = round(s.reading.Temperature(), 1)
		s.state = s.celsius
		if s.unit == TempFahrenheit {
			s.state = round(celsiusToFahrenheit(s.celsius), 1)
		}
	case KindHumidity:
		s.state = round(s.reading.Humidity(), 1)
	}
	s.hasState = true

	return nil
}

// NormalizeTemperatureUnit accepts °C/°F with or without the degree sign, empty means °C.
func NormalizeTemperatureUnit(unit string) (string, error) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(unit), "°")) {
	case "", "C":
		return TempCelsius, nil
	case "F":
		return TempFahrenheit, nil
	}

	return "", errors.Errorf("unsupported temperature unit: %q", unit)
}

func celsiusToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

func round(value float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}
