package drivers

import (
	"fmt"
	"sync"
)

const mockSensorDriverName = "mock_sensor"

// MockClimateSensor serves fixed readings and records every call in order.
type MockClimateSensor struct {
	Temperature float64
	Humidity    float64

	// returned by both reads when set
	ReadErr error
	// returned by a single read when set
	TemperatureErr error
	HumidityErr    error

	TemperatureResolution ResolutionCode
	HumidityResolution    ResolutionCode
	HeaterOn              bool

	calls []string
	lock  sync.Mutex
}

func (ms *MockClimateSensor) record(call string) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.calls = append(ms.calls, call)
}

// Calls returns a copy of the call log.
func (ms *MockClimateSensor) Calls() []string {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	return append([]string{}, ms.calls...)
}

// CountCalls returns how many times call was recorded.
func (ms *MockClimateSensor) CountCalls(call string) (count int) {
	for _, c := range ms.Calls() {
		if c == call {
			count++
		}
	}
	return
}

func (ms *MockClimateSensor) ResetCalls() {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.calls = nil
}

func (ms *MockClimateSensor) TurnHeaterOn() error {
	ms.record("heater_on")
	ms.HeaterOn = true
	return nil
}

func (ms *MockClimateSensor) TurnHeaterOff() error {
	ms.record("heater_off")
	ms.HeaterOn = false
	return nil
}

func (ms *MockClimateSensor) ReadTemperature() (float64, error) {
	ms.record("read_temperature")
	if ms.ReadErr != nil {
		return 0, ms.ReadErr
	}
	if ms.TemperatureErr != nil {
		return 0, ms.TemperatureErr
	}
	return ms.Temperature, nil
}

func (ms *MockClimateSensor) ReadHumidity() (float64, error) {
	ms.record("read_humidity")
	if ms.ReadErr != nil {
		return 0, ms.ReadErr
	}
	if ms.HumidityErr != nil {
		return 0, ms.HumidityErr
	}
	return ms.Humidity, nil
}

func (ms *MockClimateSensor) SetTemperatureResolution(code ResolutionCode) error {
	ms.record(fmt.Sprintf("temperature_resolution:0x%04X", uint16(code)))
	ms.TemperatureResolution = code
	return nil
}

func (ms *MockClimateSensor) SetHumidityResolution(code ResolutionCode) error {
	ms.record(fmt.Sprintf("humidity_resolution:0x%04X", uint16(code)))
	ms.HumidityResolution = code
	return nil
}

func (ms *MockClimateSensor) Close() error {
	return nil
}

func (ms *MockClimateSensor) String() string {
	return mockSensorDriverName
}
