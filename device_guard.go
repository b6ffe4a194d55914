package makibishi

import (
	"fmt"
	"reflect"

	"github.com/gekko3d/makibishi/gpu"
)

// GPU is the resource holding the device every emitter draws through.
type GPU struct {
	Name   string
	Device gpu.Device
}

// DeviceModule installs the graphics device. Only one device may be
// installed per app.
type DeviceModule struct {
	Name   string
	Device gpu.Device
}

func (m DeviceModule) Install(app *App, cmd *Commands) {
	if m.Device == nil {
		panic("DeviceModule: nil device")
	}
	ensureSingleDevice(app, m.Name)
	cmd.AddResources(&GPU{Name: m.Name, Device: m.Device})
}

// ensureSingleDevice panics when a device with a different name is already installed.
func ensureSingleDevice(app *App, name string) {
	if app == nil {
		panic("ensureSingleDevice: app is nil")
	}
	t := reflect.TypeOf((*GPU)(nil)).Elem()
	if res, ok := app.resources[t]; ok {
		if g, ok2 := res.(*GPU); ok2 && g.Name != name {
			app.Logger().Errorf("Multiple devices installed: %s and %s", g.Name, name)
			panic(fmt.Sprintf("Multiple devices installed: %s and %s", g.Name, name))
		}
		panic(fmt.Sprintf("device %s installed twice", name))
	}
}
