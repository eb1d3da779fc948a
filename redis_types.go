package main

// Redis representation of the brake status report
type RedisBrakeStatus struct {
	Enabled          bool
	OperatorOverride bool
	DTCs             uint8
}
