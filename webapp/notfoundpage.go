package webapp

import (
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// NotFoundPage points unknown paths back at the conversion tools
type NotFoundPage struct {
	app.Compo
	tools []Tool
}

// OnMount loads the tool list so each tool can be offered as a link
func (p *NotFoundPage) OnMount(ctx app.Context) {
	fetchJSON(ctx, "/api/tools", &p.tools, func(err error) {
		if err != nil {
			p.tools = nil
		}
	})
}

// Render renders the 404 page
func (p *NotFoundPage) Render() app.UI {
	return app.Div().
		Class("not-found-page").
		Body(
			app.Div().
				Class("not-found-container").
				Body(
					app.H1().
						Class("not-found-title").
						Text("404"),
					app.H2().
						Class("not-found-subtitle").
						Text("Page Not Found"),
					app.P().
						Class("not-found-message").
						Text("There is no page here. Pick a conversion below or go back to the converter."),
					app.If(len(p.tools) > 0, func() app.UI {
						return app.Ul().Class("not-found-tools").Body(
							app.Range(p.tools).Slice(func(i int) app.UI {
								tool := p.tools[i]
								return app.Li().Body(
									app.A().Href(toolHref(tool.ID)).Text(tool.Label()),
								)
							}),
						)
					}),
					app.Div().
						Class("not-found-actions").
						Body(
							app.A().
								Href("/").
								Class("not-found-home-link").
								Text("🔄 Back to the converter"),
						),
				),
		)
}

// toolHref opens the converter with id preselected
func toolHref(id string) string {
	return "/?" + url.Values{"tool": {id}}.Encode()
}
