package models

// Device is a controllable peripheral on the managed host.
type Device string

// Controllable devices.
const (
	DeviceFan    Device = "fan"
	DeviceLights Device = "lights"
	DeviceCamera Device = "camera"
)

// Action is the requested power state for a device.
type Action string

// Device actions.
const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// ControlResult is returned by device control and shutdown operations.
type ControlResult struct {
	Action Action
	Result ExecResult
}

// ConnectResult is returned by a successful connectivity probe.
type ConnectResult struct {
	Output string
}

// StatusReport is the best-effort view of configuration and connectivity.
type StatusReport struct {
	Connected  bool   `json:"connected"`
	Configured bool   `json:"configured"`
	Host       string `json:"host,omitempty"`
	Error      string `json:"error,omitempty"`
}
