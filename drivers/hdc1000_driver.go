package drivers

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const hdc1000DriverName = "hdc1000"

const (
	hdcRegTemperature  = 0x00
	hdcRegHumidity     = 0x01
	hdcRegConfig       = 0x02
	hdcRegSerialFirst  = 0xFB
	hdcRegManufacturer = 0xFE
	hdcRegDeviceId     = 0xFF
)

const (
	hdcConfigHeater          = 0x2000
	hdcConfigTemperatureMask = 0x0400
	hdcConfigHumidityMask    = 0x0300
)

const hdcManufacturerTexasInstruments = 0x5449

// conversion takes 6.5ms at 14 bit for each quantity, leave some margin
const hdcConversionTime = 20 * time.Millisecond

type Hdc1000 struct {
	dev *i2c.Dev
	bus io.Closer

	manufacturerId uint16
	deviceId       uint16
	serial         uint64
	conversionTime time.Duration
}

// OpenHdc1000 opens i2c bus busNo and identifies HDC1000 at address, address
// may be given in hex ("0x40") or decimal ("64").
func OpenHdc1000(busNo int, address string) (*Hdc1000, error) {
	addr, err := strconv.ParseUint(address, 0, 16)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse i2c address (%s)", address)
	}

	_, err = host.Init()
	if err != nil {
		return nil, errors.Wrap(err, "failed to init periph host drivers")
	}

	bus, err := i2creg.Open(strconv.Itoa(busNo))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c bus %d", busNo)
	}

	hdc, err := NewHdc1000(bus, uint16(addr))
	if err != nil {
		bus.Close()
		return nil, err
	}
	hdc.bus = bus

	return hdc, nil
}

// NewHdc1000 checks the chip identity on an already opened bus and resets
// its configuration: heater off, 14 bit resolution, single quantity acquisition.
func NewHdc1000(bus i2c.Bus, addr uint16) (hdc *Hdc1000, err error) {
	hdc = &Hdc1000{
		dev:            &i2c.Dev{Bus: bus, Addr: addr},
		conversionTime: hdcConversionTime,
	}

	hdc.manufacturerId, err = hdc.readRegister(hdcRegManufacturer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manufacturer id of hdc1000 at 0x%02x", addr)
	}
	if hdc.manufacturerId != hdcManufacturerTexasInstruments {
		return nil, errors.Errorf("device at 0x%02x is not a hdc1000, manufacturer id: 0x%04X", addr, hdc.manufacturerId)
	}

	hdc.deviceId, err = hdc.readRegister(hdcRegDeviceId)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read device id")
	}

	var serialWords [3]uint16
	for ix := range serialWords {
		serialWords[ix], err = hdc.readRegister(byte(hdcRegSerialFirst + ix))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read serial number")
		}
	}
	// serial id bits 40:25, 24:9 and 8:0 (upper part of the last word)
	hdc.serial = uint64(serialWords[0])<<25 | uint64(serialWords[1])<<9 | uint64(serialWords[2]>>7)

	err = hdc.writeConfig(0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reset hdc1000 config")
	}

	return hdc, nil
}

func (hdc *Hdc1000) readRegister(reg byte) (uint16, error) {
	buf := make([]byte, 2)
	err := hdc.dev.Tx([]byte{reg}, buf)
	if err != nil {
		return 0, err
	}

	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (hdc *Hdc1000) readConfig() (uint16, error) {
	return hdc.readRegister(hdcRegConfig)
}

func (hdc *Hdc1000) writeConfig(config uint16) error {
	return hdc.dev.Tx([]byte{hdcRegConfig, byte(config >> 8), byte(config)}, nil)
}

func (hdc *Hdc1000) updateConfig(clear, set uint16) error {
	config, err := hdc.readConfig()
	if err != nil {
		return errors.Wrap(err, "failed to read config register")
	}

	err = hdc.writeConfig(config&^clear | set)
	if err != nil {
		return errors.Wrap(err, "failed to write config register")
	}

	return nil
}

// measure triggers conversion by pointing at reg and reads the result once ready.
func (hdc *Hdc1000) measure(reg byte) (raw uint16, err error) {
	err = hdc.dev.Tx([]byte{reg}, nil)
	if err != nil {
		return
	}

	time.Sleep(hdc.conversionTime)

	buf := make([]byte, 2)
	err = hdc.dev.Tx(nil, buf)
	if err != nil {
		return
	}

	raw = uint16(buf[0])<<8 | uint16(buf[1])
	return
}

func (hdc *Hdc1000) TurnHeaterOn() error {
	return errors.Wrap(hdc.updateConfig(0, hdcConfigHeater), "failed to turn heater on")
}

func (hdc *Hdc1000) TurnHeaterOff() error {
	return errors.Wrap(hdc.updateConfig(hdcConfigHeater, 0), "failed to turn heater off")
}

// ReadTemperature returns temperature in °C.
func (hdc *Hdc1000) ReadTemperature() (float64, error) {
	raw, err := hdc.measure(hdcRegTemperature)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read temperature")
	}

	return float64(raw)/65536*165 - 40, nil
}

// ReadHumidity returns relative humidity in %.
func (hdc *Hdc1000) ReadHumidity() (float64, error) {
	raw, err := hdc.measure(hdcRegHumidity)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read humidity")
	}

	return float64(raw) / 65536 * 100, nil
}

func (hdc *Hdc1000) SetTemperatureResolution(code ResolutionCode) error {
	if uint16(code)&^hdcConfigTemperatureMask != 0 {
		return errors.Errorf("invalid temperature resolution code: 0x%04X", uint16(code))
	}

	return errors.Wrap(hdc.updateConfig(hdcConfigTemperatureMask, uint16(code)), "failed to set temperature resolution")
}

func (hdc *Hdc1000) SetHumidityResolution(code ResolutionCode) error {
	if uint16(code)&^hdcConfigHumidityMask != 0 || code == hdcConfigHumidityMask {
		return errors.Errorf("invalid humidity resolution code: 0x%04X", uint16(code))
	}

	return errors.Wrap(hdc.updateConfig(hdcConfigHumidityMask, uint16(code)), "failed to set humidity resolution")
}

func (hdc *Hdc1000) ManufacturerId() uint16 {
	return hdc.manufacturerId
}

func (hdc *Hdc1000) DeviceId() uint16 {
	return hdc.deviceId
}

func (hdc *Hdc1000) SerialNumber() uint64 {
	return hdc.serial
}

func (hdc *Hdc1000) Close() error {
	if hdc.bus == nil {
		return nil
	}
	return hdc.bus.Close()
}

func (hdc *Hdc1000) String() string {
	return fmt.Sprintf("%s@0x%02x", hdc1000DriverName, hdc.dev.Addr)
}
