package webapp

import (
	"strconv"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Name                  string   `json:"name"`
	Version               string   `json:"version"`
	DatabaseType          string   `json:"databaseType"`
	DatabaseHost          string   `json:"databaseHost"`
	DatabasePort          string   `json:"databasePort"`
	DatabaseName          string   `json:"databaseName"`
	JobLogEnabled         bool     `json:"jobLogEnabled"`
	Renderer              string   `json:"renderer"`
	RenderDPI             float64  `json:"renderDPI"`
	GhostscriptConfigured bool     `json:"ghostscriptConfigured"`
	GhostscriptPath       string   `json:"ghostscriptPath"`
	MaxUploadSize         string   `json:"maxUploadSize"`
	AllowedExtensions     []string `json:"allowedExtensions"`
	MetricsEnabled        bool     `json:"metricsEnabled"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	fetchJSON(ctx, "/api/about", &a.aboutInfo, func(err error) {
		if err != nil {
			a.error = err.Error()
		}
		a.loading = false
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About LocalPDF"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About LocalPDF"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About LocalPDF"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Job Log", a.getJobLogDisplay()),
					a.renderInfoItem("PDF/A", a.getGhostscriptStatus()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Conversion Limits"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Upload limit: "),
						app.Text(a.aboutInfo.MaxUploadSize),
					),
					app.P().Body(
						app.Strong().Text("Allowed extensions: "),
						app.Text(strings.Join(a.aboutInfo.AllowedExtensions, ", ")),
					),
					app.P().Body(
						app.Strong().Text("Page renderer: "),
						app.Text(a.getRendererDisplay()),
					),
				),
			),
			app.If(a.aboutInfo.JobLogEnabled, func() app.UI {
				return app.Div().Class("about-section").Body(
					app.H3().Text("Job Log Database"),
					app.Div().Class("config-details").Body(
						app.P().Body(
							app.Strong().Text("Database Type: "),
							app.Text(a.getDatabaseDisplay()),
						),
						app.P().Body(
							app.Strong().Text("Host: "),
							app.Text(a.aboutInfo.DatabaseHost),
						),
						app.P().Body(
							app.Strong().Text("Database Name: "),
							app.Text(a.aboutInfo.DatabaseName),
						),
					),
				)
			}),
			app.Div().Class("about-section").Body(
				app.H3().Text("About LocalPDF"),
				app.P().Text("LocalPDF converts, merges, splits and compresses documents on your own server."),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	case "ephemeral":
		return "Ephemeral PostgreSQL"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getJobLogDisplay names the job log backend, or says it is off
func (a *AboutPage) getJobLogDisplay() string {
	if !a.aboutInfo.JobLogEnabled {
		return "Disabled"
	}
	return a.getDatabaseDisplay()
}

// getGhostscriptStatus returns whether pdf-to-pdfa can run
func (a *AboutPage) getGhostscriptStatus() string {
	if a.aboutInfo.GhostscriptConfigured {
		return "Enabled"
	}
	return "Disabled"
}

// getRendererDisplay returns the renderer with its resolution
func (a *AboutPage) getRendererDisplay() string {
	name := a.aboutInfo.Renderer
	switch name {
	case "", "pdfium":
		name = "PDFium"
	case "fitz":
		name = "MuPDF"
	}
	if a.aboutInfo.RenderDPI > 0 {
		name += " at " + strconv.FormatFloat(a.aboutInfo.RenderDPI, 'f', -1, 64) + " DPI"
	}
	return name
}
