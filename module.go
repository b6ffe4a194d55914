package makibishi

type Module interface {
	Install(app *App, cmd *Commands)
}
