package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/hdckit/drivers"
)

func main() {
	bus := flag.Int("bus", 1, "i2c bus number")
	address := flag.String("address", "0x40", "hdc1000 i2c address")
	heat := flag.Duration("heat", 0, "run heater for this long before reading")
	flag.Parse()

	hdc, err := drivers.OpenHdc1000(*bus, *address)
	if err != nil {
		log.Fatal("failed to open hdc1000", "err", err)
	}
	defer hdc.Close()

	fmt.Println("------------")
	fmt.Printf("Manufacturer ID=0x%X\n", hdc.ManufacturerId())
	fmt.Printf("Device ID=0x%X\n", hdc.DeviceId())
	fmt.Printf("Serial Number ID=0x%X\n", hdc.SerialNumber())

	if *heat > 0 {
		if err = hdc.TurnHeaterOn(); err != nil {
			log.Fatal("heater", "err", err)
		}
		time.Sleep(*heat)
		if err = hdc.TurnHeaterOff(); err != nil {
			log.Fatal("heater", "err", err)
		}
	}

	temperature, err := hdc.ReadTemperature()
	if err != nil {
		log.Fatal("read failed", "err", err)
	}
	humidity, err := hdc.ReadHumidity()
	if err != nil {
		log.Fatal("read failed", "err", err)
	}

	fmt.Printf("Temperature = %.2f °C\n", temperature)
	fmt.Printf("Humidity = %.2f %%\n", humidity)
}
