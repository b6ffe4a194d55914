package makibishi

// Commands is the handle modules use to register resources, systems and
// shutdown hooks while the app is being built.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// OnShutdown registers fn to run from App.Shutdown. Hooks run in reverse
// registration order.
func (cmd *Commands) OnShutdown(fn func()) *Commands {
	cmd.app.shutdown = append(cmd.app.shutdown, fn)
	return cmd
}
