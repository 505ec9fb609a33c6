package main

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// simPins hands out in-memory pins for the console preview.
func simPins(name string) gpio.PinOut {
	return &gpiotest.Pin{N: name}
}
