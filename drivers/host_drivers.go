//go:build !tinygo

package drivers

import "sort"

func MapAllDrivers() map[string]Hardware {
	drivers := []Hardware{
		&GpIO{},
		&McpIO{},
		&SerialIO{},
		&MockHardware{},
	}

	mapped := make(map[string]Hardware)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

func DriverNames() (names []string) {
	for name := range MapAllDrivers() {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
