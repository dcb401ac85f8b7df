package adapters

import (
	"os"
	"runtime"
	"strings"
	"time"
)

// DeviceContext holds device and platform introspection results. Every field
// except Platform is optional and omitted from the wire when empty.
type DeviceContext struct {
	Platform     string
	OSVersion    string
	Manufacturer string
	Locale       string
	Timezone     string
}

// DeviceContextProvider is an interface for platform/device introspection.
// The core treats it as opaque; a platform adapter can report whatever the
// host exposes.
type DeviceContextProvider interface {
	DeviceContext() DeviceContext
}

// HostDeviceContext is the default provider, reporting what the Go runtime
// and process environment know about the host.
type HostDeviceContext struct{}

// Ensure HostDeviceContext implements DeviceContextProvider interface
var _ DeviceContextProvider = (*HostDeviceContext)(nil)

// NewHostDeviceContext creates a new HostDeviceContext instance.
func NewHostDeviceContext() *HostDeviceContext {
	return &HostDeviceContext{}
}

func (h *HostDeviceContext) DeviceContext() DeviceContext {
	return DeviceContext{
		Platform: runtime.GOOS,
		Locale:   localeFromEnv(),
		Timezone: time.Local.String(),
	}
}

// localeFromEnv derives a locale tag from LC_ALL/LANG, e.g. "en_US.UTF-8"
// becomes "en_US". Returns empty when the environment carries none.
func localeFromEnv() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		value := os.Getenv(key)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexByte(value, '.'); i > 0 {
			value = value[:i]
		}
		return value
	}
	return ""
}
