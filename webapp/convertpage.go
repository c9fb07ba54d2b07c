package webapp

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// ConvertPage uploads files to /convert and downloads the result
type ConvertPage struct {
	app.Compo
	tools      []Tool
	selected   string
	converting bool
	status     string
	error      string
}

// OnMount is called when the component is mounted
func (p *ConvertPage) OnMount(ctx app.Context) {
	requested := ctx.Page().URL().Query().Get("tool")
	fetchJSON(ctx, "/api/tools", &p.tools, func(err error) {
		if err != nil {
			p.error = "Unable to load tools: " + err.Error()
			return
		}
		p.selected = pickTool(p.tools, requested)
	})
}

// OnNav follows ?tool= links once the tools are loaded
func (p *ConvertPage) OnNav(ctx app.Context) {
	if len(p.tools) > 0 {
		p.selected = pickTool(p.tools, ctx.Page().URL().Query().Get("tool"))
	}
}

// pickTool is requested when it names a known tool, otherwise the first tool
func pickTool(tools []Tool, requested string) string {
	for _, tool := range tools {
		if tool.ID == requested {
			return requested
		}
	}
	if len(tools) == 0 {
		return ""
	}
	return tools[0].ID
}

// Render renders the convert page
func (p *ConvertPage) Render() app.UI {
	return app.Div().
		Class("convert-page").
		Body(
			app.H2().Text("Convert Files"),
			app.P().Text("Files are converted on this server and removed as soon as the result is returned."),

			app.Form().
				ID("convert-form").
				Class("convert-form").
				OnSubmit(p.onSubmit).
				Body(
					app.Label().For("tool").Text("Tool"),
					app.Select().
						ID("tool").
						Name("tool").
						OnChange(p.onToolChange).
						Body(
							app.Range(p.tools).Slice(func(i int) app.UI {
								tool := p.tools[i]
								return app.Option().
									Value(tool.ID).
									Selected(tool.ID == p.selected).
									Text(tool.Label())
							}),
						),
					app.Input().
						ID("files").
						Type("file").
						Name("files").
						Multiple(p.multiple()).
						Accept(p.accept()),
					app.Button().
						Class("btn-primary").
						Type("submit").
						Disabled(p.converting || len(p.tools) == 0).
						Text(p.buttonText()),
				),

			app.If(p.status != "", func() app.UI {
				return app.Div().Class("info").Body(app.Text(p.status))
			}),
			app.If(p.error != "", func() app.UI {
				return app.Div().Class("error").Body(app.Text("Error: " + p.error))
			}),
		)
}

// selectedTool returns the tool picked in the menu
func (p *ConvertPage) selectedTool() (Tool, bool) {
	for _, tool := range p.tools {
		if tool.ID == p.selected {
			return tool, true
		}
	}
	return Tool{}, false
}

func (p *ConvertPage) multiple() bool {
	tool, ok := p.selectedTool()
	return ok && tool.Arity == "multi"
}

// accept is the file picker filter for the selected tool, e.g. ".pdf,.docx"
func (p *ConvertPage) accept() string {
	tool, ok := p.selectedTool()
	if !ok {
		return ""
	}
	exts := make([]string, 0, len(tool.Accepts))
	for _, ext := range tool.Accepts {
		exts = append(exts, "."+ext)
	}
	return strings.Join(exts, ",")
}

func (p *ConvertPage) buttonText() string {
	if p.converting {
		return "Converting..."
	}
	return "Convert"
}

// onToolChange handles a new tool selection
func (p *ConvertPage) onToolChange(ctx app.Context, e app.Event) {
	p.selected = ctx.JSSrc().Get("value").String()
	ctx.Update()
}

// onSubmit posts the form and saves the response through a temporary link
func (p *ConvertPage) onSubmit(ctx app.Context, e app.Event) {
	e.PreventDefault()
	form := ctx.JSSrc()
	p.converting = true
	p.status = ""
	p.error = ""
	ctx.Update()

	ctx.Async(func() {
		body := app.Window().Get("FormData").New(form)
		options := app.ValueOf(map[string]any{"method": "POST"})
		options.Set("body", body)
		res := app.Window().Call("fetch", BuildAPIURL("/convert"), options)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			if !response.Get("ok").Bool() {
				status := response.Get("status").Int()
				response.Call("text").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
					message := "request failed"
					if len(args) > 0 {
						message = errorText(args[0].String())
					}
					ctx.Dispatch(func(ctx app.Context) {
						p.converting = false
						p.error = message
						if status == 413 && !strings.HasPrefix(message, "File too large") {
							p.error = "File too large"
						}
					})
					return nil
				}))
				return nil
			}

			filename := downloadName(response.Get("headers").Call("get", "Content-Disposition").String())
			response.Call("blob").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}
				url := app.Window().Get("URL").Call("createObjectURL", args[0])
				link := app.Window().Get("document").Call("createElement", "a")
				link.Set("href", url)
				link.Set("download", filename)
				link.Call("click")
				app.Window().Get("URL").Call("revokeObjectURL", url)

				ctx.Dispatch(func(ctx app.Context) {
					p.converting = false
					p.status = "Downloaded " + filename
				})
				return nil
			}))
			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				p.converting = false
				p.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}

// downloadName extracts the filename from an attachment Content-Disposition header
func downloadName(disposition string) string {
	_, name, found := strings.Cut(disposition, "filename=")
	name = strings.Trim(strings.TrimSpace(name), `"`)
	if !found || name == "" {
		return "converted"
	}
	return name
}
