package model

// PowerReading is the normalized power triple of the latest accepted frame.
type PowerReading struct {
	Queue float64 `json:"queue"`
	Exec  float64 `json:"exec"`
	Limit float64 `json:"limit"`
}

// Indicators are the scalar values shown next to the charts.
// Nil pointers mean no frame has carried the value yet.
type Indicators struct {
	LatestTimestep         *int64        `json:"latestTimestep"`
	LatestPower            *PowerReading `json:"latestPower"`
	BatterySOC             *float64      `json:"batterySoc"`  // fraction in [0,1], rl_min_instability only
	FlywheelSOC            *float64      `json:"flywheelSoc"` // fraction in [0,1], rl_min_instability only
	LatestEnergyConsumedMW *float64      `json:"latestEnergyConsumedMw"`
	MaxAccumCO2            float64       `json:"maxAccumCo2"` // max over the current windows, not the lifetime
}
