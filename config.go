package hdckit

import (
	"encoding/json"
	"os"

	"github.com/hubertat/hdckit/drivers"
	"github.com/pkg/errors"
)

const (
	defaultName                  = "HDC1000 Sensor"
	defaultI2cAddress            = "0x76"
	defaultI2cBus                = 1
	defaultHumidityResolution    = 14
	defaultTemperatureResolution = 14
	defaultMqttTopic             = "hdckit"
)

var defaultMonitoredConditions = []string{string(KindTemperature), string(KindHumidity)}

var temperatureResolutions = map[int]drivers.ResolutionCode{
	11: drivers.TemperatureResolution11Bit,
	14: drivers.TemperatureResolution14Bit,
}

var humidityResolutions = map[int]drivers.ResolutionCode{
	8:  drivers.HumidityResolution8Bit,
	11: drivers.HumidityResolution11Bit,
	14: drivers.HumidityResolution14Bit,
}

// LoadConfig reads json config file into HdcKit and fills defaults.
func LoadConfig(path string) (*HdcKit, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading config file %s", path)
	}

	// bus 0 is a valid bus, so default is applied only when the key is missing
	hk := &HdcKit{I2cBus: defaultI2cBus}
	err = json.Unmarshal(buff, hk)
	if err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling json config")
	}

	hk.SetDefaults()
	return hk, nil
}

func (hk *HdcKit) SetDefaults() {
	if len(hk.Name) == 0 {
		hk.Name = defaultName
	}
	if len(hk.I2cAddress) == 0 {
		hk.I2cAddress = defaultI2cAddress
	}
	if hk.MonitoredConditions == nil {
		hk.MonitoredConditions = append([]string{}, defaultMonitoredConditions...)
	}
	if hk.HumidityResolution == 0 {
		hk.HumidityResolution = defaultHumidityResolution
	}
	if hk.TemperatureResolution == 0 {
		hk.TemperatureResolution = defaultTemperatureResolution
	}
	if len(hk.TemperatureUnit) == 0 {
		hk.TemperatureUnit = TempCelsius
	}
	if len(hk.MqttTopic) == 0 {
		hk.MqttTopic = defaultMqttTopic
	}
}

func (hk *HdcKit) resolutionCodes() (temperature, humidity drivers.ResolutionCode, err error) {
	temperature, found := temperatureResolutions[hk.TemperatureResolution]
	if !found {
		err = errors.Errorf("unsupported temperature resolution: %d bits (11 or 14 allowed)", hk.TemperatureResolution)
		return
	}

	humidity, found = humidityResolutions[hk.HumidityResolution]
	if !found {
		err = errors.Errorf("unsupported humidity resolution: %d bits (8, 11 or 14 allowed)", hk.HumidityResolution)
		return
	}

	return
}
