package safety

// EmergencyContact is supplied by configuration and never mutated by the engine.
type EmergencyContact struct {
	// Name is shown to caregivers and on the call screen.
	Name string `yaml:"name" json:"name"`
	// PhoneNumber is dialed as-is.
	PhoneNumber string `yaml:"phone" json:"phone"`
}

// Location is a best-effort position of the wearer.
type Location struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}
