package makibishi

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// App runs installed systems once per frame, stage by stage. Systems are
// plain functions whose pointer arguments are resolved from resources.
type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	shutdown  []func()

	frames  int
	stopped bool
	closed  bool
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Frames is the number of completed Step calls.
func (app *App) Frames() int { return app.frames }

// Step runs every stage once.
func (app *App) Step() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
	}
	app.frames++
}

// Run steps until Stop is called or until returns true. A nil until runs
// until Stop. Shutdown hooks run before Run returns.
func (app *App) Run(until func() bool) {
	defer app.Shutdown()
	for !app.stopped {
		if until != nil && until() {
			break
		}
		app.Step()
	}
}

func (app *App) Stop() { app.stopped = true }

// Shutdown runs the registered hooks once, newest first.
func (app *App) Shutdown() {
	if app.closed {
		return
	}
	app.closed = true
	for i := len(app.shutdown) - 1; i >= 0; i-- {
		app.shutdown[i]()
	}
}

func (app *App) UseSystem(system systemScheduleBuilder) *App {
	if _, ok := app.systems[system.inStage.Name]; !ok {
		panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
	}
	app.systems[system.inStage.Name] = append(app.systems[system.inStage.Name], system.system)
	return app
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T if one was added.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	v, ok := r.(*T)
	return v, ok
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
