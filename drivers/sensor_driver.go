package drivers

type ResolutionCode uint16

const (
	TemperatureResolution14Bit ResolutionCode = 0x0000
	TemperatureResolution11Bit ResolutionCode = 0x0400

	HumidityResolution14Bit ResolutionCode = 0x0000
	HumidityResolution11Bit ResolutionCode = 0x0100
	HumidityResolution8Bit  ResolutionCode = 0x0200
)

// ClimateSensor is a temperature/humidity chip with a built-in heater.
type ClimateSensor interface {
	TurnHeaterOn() error
	TurnHeaterOff() error
	ReadTemperature() (float64, error)
	ReadHumidity() (float64, error)
	SetTemperatureResolution(ResolutionCode) error
	SetHumidityResolution(ResolutionCode) error
	Close() error
	String() string
}
