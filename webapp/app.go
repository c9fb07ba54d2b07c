package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Routes are the client-side pages, all rendered through App
var Routes = []string{"/", "/jobs", "/about"}

// App is the root component of the application
type App struct {
	app.Compo
}

// Render renders the app
func (a *App) Render() app.UI {
	return app.Div().
		Class("app-container").
		Body(
			app.Header().Body(
				&NavBar{},
			),
			app.Div().Class("app-layout").Body(
				&Sidebar{},
				app.Main().Class("main-content").Body(
					app.Div().Class("content").Body(
						pageFor(app.Window().URL().Path),
					),
				),
			),
		)
}

// pageFor picks the page component for a route
func pageFor(path string) app.UI {
	switch path {
	case "/":
		return &ConvertPage{}
	case "/jobs":
		return &JobsPage{}
	case "/about":
		return &AboutPage{}
	default:
		return &NotFoundPage{}
	}
}

// RegisterRoutes binds every page route to App
func RegisterRoutes() {
	for _, route := range Routes {
		app.Route(route, func() app.Composer { return &App{} })
	}
}
