package brake

import (
	"errors"
	"fmt"
	"log"

	"brake-service/config"
	"brake-service/dac"

	"github.com/brutella/can"
)

// ModuleConfig contains the collaborators and tuning of a brake module
type ModuleConfig struct {
	Logger Logger
	Bus    Publisher
	ADC    ADC
	DAC    DAC
	Clock  Clock

	SpoofEnable OutputPin
	BrakeLight  OutputPin

	// Analog inputs of the two pedal position sensor channels
	PedalHighInput ADCInput
	PedalLowInput  ADCInput

	Tuning config.BrakeConfig
}

type controlState struct {
	enabled          bool
	operatorOverride bool
	dtcs             DTCBitfield
}

// Module is the brake by-wire control state machine. It owns its sensor
// signal, fault latches and output handles; it is driven from a single
// control loop and is not safe for concurrent use.
type Module struct {
	logger Logger
	bus    Publisher
	dac    DAC

	spoofEnable OutputPin
	brakeLight  OutputPin

	tuning config.BrakeConfig

	pedalPosition  *DualSignal
	state          controlState
	groundedFault  *FaultCondition
	overrideFault  *FaultCondition
	statusCallback func(BrakeReport)
	faultCallback  func(FaultReport)
}

func NewModule(cfg ModuleConfig) (*Module, error) {
	if cfg.Bus == nil || cfg.ADC == nil || cfg.DAC == nil {
		return nil, errors.New("brake module needs a bus, an ADC and a DAC")
	}
	if cfg.SpoofEnable == nil || cfg.BrakeLight == nil {
		return nil, errors.New("brake module needs spoof enable and brake light pins")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewStdLogger(log.Default(), false)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &Module{
		logger:        logger,
		bus:           cfg.Bus,
		dac:           cfg.DAC,
		spoofEnable:   cfg.SpoofEnable,
		brakeLight:    cfg.BrakeLight,
		tuning:        cfg.Tuning,
		pedalPosition: NewDualSignal(cfg.ADC, cfg.PedalHighInput, cfg.PedalLowInput, logger),
		groundedFault: NewFaultCondition(clock),
		overrideFault: NewFaultCondition(clock),
	}, nil
}

// Init puts the outputs in their released state.
func (m *Module) Init() error {
	if err := m.spoofEnable.Low(); err != nil {
		return fmt.Errorf("failed to release spoof enable: %w", err)
	}
	if err := m.brakeLight.Low(); err != nil {
		return fmt.Errorf("failed to release brake light: %w", err)
	}
	m.logger.Info("Brake module initialized")
	return nil
}

// SetStatusCallback registers a function called with every published status report
func (m *Module) SetStatusCallback(callback func(BrakeReport)) {
	m.statusCallback = callback
}

// SetFaultCallback registers a function called with every published fault report
func (m *Module) SetFaultCallback(callback func(FaultReport)) {
	m.faultCallback = callback
}

// Status returns the current control state as a report
func (m *Module) Status() BrakeReport {
	return BrakeReport{
		Enabled:          m.state.enabled,
		OperatorOverride: m.state.operatorOverride,
		DTCs:             m.state.dtcs,
	}
}

// Enable hands the brake to the by-wire controller. It does nothing while
// enabled or while an operator override is latched.
func (m *Module) Enable() {
	if m.state.enabled || m.state.operatorOverride || m.overrideFault.Confirmed() {
		return
	}

	if err := m.primeOutput(); err != nil {
		m.logger.Error("Brake enable aborted: %v", err)
		m.state.dtcs.Set(DTCOutputTransfer)
		m.PublishFaultReport()
		return
	}

	if err := m.spoofEnable.High(); err != nil {
		m.logger.Error("Brake enable aborted, spoof enable failed: %v", err)
		if err := m.spoofEnable.Low(); err != nil {
			m.logger.Error("Failed to release spoof enable: %v", err)
		}
		m.state.dtcs.Set(DTCOutputTransfer)
		m.PublishFaultReport()
		return
	}

	m.state.enabled = true
	m.logger.Info("Brake control enabled (primed high=%d low=%d)",
		m.pedalPosition.DACOutputA(), m.pedalPosition.DACOutputB())
}

// Disable hands the brake back to the driver. It is safe from any state.
// A failed priming write still releases the pins, then latches
// DTCOutputTransfer and publishes a fault report.
func (m *Module) Disable() {
	if err := m.disable(); err != nil {
		m.state.dtcs.Set(DTCOutputTransfer)
		m.PublishFaultReport()
	}
}

// disable releases the outputs and returns the priming error, if any, so
// fault paths can fold it into their own report.
func (m *Module) disable() error {
	if !m.state.enabled {
		return nil
	}

	// the pins are released even if priming fails
	primeErr := m.primeOutput()
	if primeErr != nil {
		m.logger.Error("Priming output on disable failed: %v", primeErr)
	}

	if err := m.spoofEnable.Low(); err != nil {
		m.logger.Error("Failed to release spoof enable: %v", err)
	}
	if err := m.brakeLight.Low(); err != nil {
		m.logger.Error("Failed to release brake light: %v", err)
	}

	m.state.enabled = false
	m.logger.Info("Brake control disabled")
	return primeErr
}

// UpdateCommand drives both spoof channels. Each value is clamped to its
// channel's range and the pair is written together.
func (m *Module) UpdateCommand(spoofCommandHigh, spoofCommandLow uint16) {
	if !m.state.enabled {
		return
	}

	high := clampU16(spoofCommandHigh, m.tuning.High.SignalMin, m.tuning.High.SignalMax)
	low := clampU16(spoofCommandLow, m.tuning.Low.SignalMin, m.tuning.Low.SignalMax)

	var lightErr error
	if high > m.tuning.High.BrakeLightThreshold || low > m.tuning.Low.BrakeLightThreshold {
		lightErr = m.brakeLight.High()
	} else {
		lightErr = m.brakeLight.Low()
	}
	if lightErr != nil {
		m.logger.Warn("Failed to set brake light: %v", lightErr)
	}

	if err := m.writePair(high, low); err != nil {
		m.handleTransferFault(err)
	}
}

// CheckForFaults runs the per-cycle sensor checks. It is active while
// enabled and keeps running while a DTC is latched so the fault stays
// visible until it resolves.
func (m *Module) CheckForFaults() {
	if !m.state.enabled && m.state.dtcs == 0 {
		return
	}

	m.pedalPosition.Update()

	average := m.pedalPosition.Average()

	operatorOverridden := m.overrideFault.ConditionExceededDuration(
		average >= m.tuning.OverrideThreshold,
		m.tuning.FaultHysteresis,
	)

	inputsGrounded := m.groundedFault.CheckVoltageGrounded(
		m.pedalPosition,
		m.tuning.GroundedThreshold,
		m.tuning.FaultHysteresis,
	)

	switch {
	case inputsGrounded:
		// a zero on both sensor pins means they are disconnected
		m.disableWithin()
		m.state.dtcs.Set(DTCInvalidSensorValue)
		m.PublishFaultReport()
		m.logger.Error("Bad value read from brake pedal position sensor: high=%d low=%d",
			m.pedalPosition.High(), m.pedalPosition.Low())

	case operatorOverridden && !m.state.operatorOverride:
		m.disableWithin()
		m.state.dtcs.Set(DTCOperatorOverride)
		m.PublishFaultReport()
		m.state.operatorOverride = true
		m.logger.Warn("Brake operator override (pedal average %d)", average)

	case operatorOverridden:
		// one report per override episode

	default:
		m.state.dtcs.Clear()
		m.state.operatorOverride = false
	}
}

// PublishStatusReport sends the control state on the bus.
func (m *Module) PublishStatusReport() error {
	report := m.Status()
	frame := report.Frame()

	DebugCANFrame(m.logger, "TX", frame.ID, frame.Data, frame.Length)

	if m.statusCallback != nil {
		m.statusCallback(report)
	}

	if err := m.bus.Publish(frame); err != nil {
		m.logger.Warn("Failed to publish brake report: %v", err)
		return err
	}
	return nil
}

// PublishFaultReport announces the latched DTCs to the other modules.
func (m *Module) PublishFaultReport() error {
	report := FaultReport{
		Origin: FaultOriginBrake,
		DTCs:   m.state.dtcs,
	}
	frame := report.Frame()

	DebugCANFrame(m.logger, "TX", frame.ID, frame.Data, frame.Length)

	if m.faultCallback != nil {
		m.faultCallback(report)
	}

	if err := m.bus.Publish(frame); err != nil {
		m.logger.Error("Failed to publish fault report: %v", err)
		return err
	}
	return nil
}

// ProcessFrame dispatches a received bus frame. Frames without the by-wire
// marker are ignored.
func (m *Module) ProcessFrame(frame can.Frame) error {
	if !hasMagic(frame) {
		return nil
	}

	switch frame.ID {
	case BrakeEnableFrameID:
		DebugCANFrame(m.logger, "RX", frame.ID, frame.Data, frame.Length)
		m.Enable()

	case BrakeDisableFrameID:
		DebugCANFrame(m.logger, "RX", frame.ID, frame.Data, frame.Length)
		m.Disable()

	case BrakeCommandFrameID:
		DebugCANFrame(m.logger, "RX", frame.ID, frame.Data, frame.Length)
		command, err := ParseBrakeCommand(frame)
		if err != nil {
			return err
		}
		m.processBrakeCommand(command)

	case FaultReportFrameID:
		DebugCANFrame(m.logger, "RX", frame.ID, frame.Data, frame.Length)
		report, err := ParseFaultReport(frame)
		if err != nil {
			// a fault anywhere disables braking, even if its report is garbled
			m.Disable()
			return err
		}
		m.processFaultReport(report)
	}

	return nil
}

func (m *Module) processFaultReport(report FaultReport) {
	m.Disable()
	m.logger.Warn("Fault report received from: %s DTCs: 0x%02X", report.Origin, uint8(report.DTCs))
}

// primeOutput writes the pedal position the vehicle currently sees so that
// a mode change does not step the spoofed signal.
func (m *Module) primeOutput() error {
	m.pedalPosition.PreventSignalDiscontinuity()
	return m.writePair(m.pedalPosition.DACOutputA(), m.pedalPosition.DACOutputB())
}

// writePair drives channel A with the high signal and B with the low signal.
func (m *Module) writePair(high, low uint16) error {
	a, err := dac.NewOutput(high)
	if err != nil {
		return err
	}
	b, err := dac.NewOutput(low)
	if err != nil {
		return err
	}
	return m.dac.OutputAB(a, b)
}

// handleTransferFault treats a failed converter write like a sensor fault:
// the channels may now hold a torn pair.
func (m *Module) handleTransferFault(err error) {
	m.logger.Error("Spoof output transfer failed: %v", err)
	m.disableWithin()
	m.state.dtcs.Set(DTCOutputTransfer)
	m.PublishFaultReport()
}

// disableWithin disables from a path that publishes its own fault report.
// A priming failure joins that report instead of sending a second one.
func (m *Module) disableWithin() {
	if err := m.disable(); err != nil {
		m.state.dtcs.Set(DTCOutputTransfer)
	}
}

func clampU16(v, lo, hi uint16) uint16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
