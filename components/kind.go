package components

type Kind int

const (
	KindMicrocontroller Kind = iota
	KindShiftRegister
	KindMultiplexer
	KindValve
	KindPump
	KindMoistureSensor
	KindLiquidLevelSensor
)

var kindNames = map[Kind]string{
	KindMicrocontroller:   "microcontroller",
	KindShiftRegister:     "shift_register",
	KindMultiplexer:       "multiplexer",
	KindValve:             "valve",
	KindPump:              "pump",
	KindMoistureSensor:    "moisture_sensor",
	KindLiquidLevelSensor: "liquid_level_sensor",
}

func (k Kind) String() string {
	return kindNames[k]
}

// IsIntermediary tells whether components of this kind route signals for
// their children.
func (k Kind) IsIntermediary() bool {
	return k == KindShiftRegister || k == KindMultiplexer
}

func (k Kind) IsLeaf() bool {
	return k >= KindValve
}
