// Package intent translates device control intents into remote shell commands.
package intent

import (
	"fmt"

	"github.com/fgeck/pumpkin-control/internal/models"
)

// Fixed locations on the managed device.
const (
	FanValuePath    = "/sys/class/gpio/gpio_fan/value"
	LightsValuePath = "/sys/class/gpio/gpio_lights/value"
	CameraScript    = "/home/camera_script.py"
)

const (
	probeCommand    = `echo "Connected"`
	shutdownCommand = "sudo shutdown -h now"
)

// ParseDevice validates a device name.
func ParseDevice(s string) (models.Device, error) {
	switch d := models.Device(s); d {
	case models.DeviceFan, models.DeviceLights, models.DeviceCamera:
		return d, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}

// ParseAction validates an action name.
func ParseAction(s string) (models.Action, error) {
	switch a := models.Action(s); a {
	case models.ActionOn, models.ActionOff:
		return a, nil
	default:
		return "", fmt.Errorf("action must be 'on' or 'off', got %q", s)
	}
}

// Command returns the remote command for a device action.
func Command(device models.Device, action models.Action) (string, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return "", err
	}
	on := action == models.ActionOn

	switch device {
	case models.DeviceFan:
		return gpioWrite(FanValuePath, on), nil
	case models.DeviceLights:
		return gpioWrite(LightsValuePath, on), nil
	case models.DeviceCamera:
		if on {
			return fmt.Sprintf("nohup python3 %s > /dev/null 2>&1 &", CameraScript), nil
		}
		return "pkill -f camera_script.py", nil
	default:
		return "", fmt.Errorf("unknown device %q", device)
	}
}

// ShutdownCommand returns the privileged host shutdown directive.
func ShutdownCommand() string {
	return shutdownCommand
}

// ProbeCommand returns the harmless command used to verify connectivity.
func ProbeCommand() string {
	return probeCommand
}

func gpioWrite(path string, on bool) string {
	value := 0
	if on {
		value = 1
	}
	return fmt.Sprintf("echo %d > %s", value, path)
}
