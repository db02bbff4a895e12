package hdckit

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hubertat/hdckit/drivers"
)

func TestSetDefaults(t *testing.T) {
	hk := &HdcKit{}
	hk.SetDefaults()

	if hk.Name != "HDC1000 Sensor" || hk.I2cAddress != "0x76" {
		t.Errorf("defaults mismatch: %q %q", hk.Name, hk.I2cAddress)
	}
	assertInts(t, hk.HumidityResolution, 14)
	assertInts(t, hk.TemperatureResolution, 14)

	want := []string{"temperature", "humidity"}
	if !reflect.DeepEqual(hk.MonitoredConditions, want) {
		t.Errorf("got monitored conditions %v", hk.MonitoredConditions)
	}
	if hk.TemperatureUnit != TempCelsius {
		t.Errorf("got temperature unit %s", hk.TemperatureUnit)
	}
}

func TestSetDefaultsCopiesConditionList(t *testing.T) {
	hk := &HdcKit{}
	hk.SetDefaults()
	hk.MonitoredConditions[0] = "pressure"

	other := &HdcKit{}
	other.SetDefaults()
	if other.MonitoredConditions[0] != "temperature" {
		t.Errorf("defaults changed through config, got %v", other.MonitoredConditions)
	}
}

func TestSetDefaultsKeepsEmptyConditionList(t *testing.T) {
	hk := &HdcKit{MonitoredConditions: []string{}}
	hk.SetDefaults()

	assertInts(t, len(hk.MonitoredConditions), 0)
}

func TestResolutionCodes(t *testing.T) {
	hk := &HdcKit{TemperatureResolution: 11, HumidityResolution: 8}

	temperature, humidity, err := hk.resolutionCodes()
	if err != nil {
		t.Fatalf("resolutionCodes returned error: %v", err)
	}
	if temperature != drivers.TemperatureResolution11Bit || humidity != drivers.HumidityResolution8Bit {
		t.Errorf("got codes %04X %04X", temperature, humidity)
	}

	hk.TemperatureResolution = 8
	if _, _, err = hk.resolutionCodes(); err == nil {
		t.Error("expected error for 8 bit temperature resolution")
	}

	hk.TemperatureResolution = 14
	hk.HumidityResolution = 12
	if _, _, err = hk.resolutionCodes(); err == nil {
		t.Error("expected error for 12 bit humidity resolution")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
	"Name": "Attic",
	"I2cAddress": "0x40",
	"MonitoredConditions": ["humidity"],
	"TemperatureUnit": "°F",
	"HttpAddr": ":8080"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	hk, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if hk.Name != "Attic" || hk.I2cAddress != "0x40" || hk.I2cBus != 1 {
		t.Errorf("config mismatch: %q %q %d", hk.Name, hk.I2cAddress, hk.I2cBus)
	}
	if !reflect.DeepEqual(hk.MonitoredConditions, []string{"humidity"}) {
		t.Errorf("got monitored conditions %v", hk.MonitoredConditions)
	}
	if hk.HttpAddr != ":8080" || hk.TemperatureUnit != "°F" {
		t.Errorf("config mismatch: %q %q", hk.HttpAddr, hk.TemperatureUnit)
	}

	if _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfigBusZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"I2cBus": 0, "I2cAddress": "0x40"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	hk, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	assertInts(t, hk.I2cBus, 0)

	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	hk, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	assertInts(t, hk.I2cBus, 1)
}
