package webapp

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// JobsPage displays the conversion job log
type JobsPage struct {
	app.Compo
	jobs          []Job
	loading       bool
	error         string
	autoRefresh   bool
	refreshTicker *time.Ticker
}

// OnMount is called when the component is mounted
func (j *JobsPage) OnMount(ctx app.Context) {
	j.autoRefresh = true
	j.loadJobs(ctx)

	// Start auto-refresh every 2 seconds
	ctx.Async(func() {
		j.refreshTicker = time.NewTicker(2 * time.Second)
		for range j.refreshTicker.C {
			if j.autoRefresh {
				j.loadJobs(ctx)
			}
		}
	})
}

// OnDismount is called when the component is unmounted
func (j *JobsPage) OnDismount() {
	if j.refreshTicker != nil {
		j.refreshTicker.Stop()
	}
}

// Render renders the jobs page
func (j *JobsPage) Render() app.UI {
	return app.Div().
		Class("jobs-page").
		Body(
			app.H2().Text("Conversion Jobs"),
			app.P().Text("Recent conversions, newest first. Finished jobs are pruned after the retention window."),

			app.Div().Class("jobs-controls").Body(
				app.Button().
					Class("btn-primary").
					OnClick(j.onRefreshClick).
					Disabled(j.loading).
					Body(app.Text("Refresh")),
				app.Label().Class("auto-refresh-label").Body(
					app.Input().
						Type("checkbox").
						Checked(j.autoRefresh).
						OnChange(j.onAutoRefreshChange),
					app.Text(" Auto-refresh"),
				),
			),

			j.renderStatus(),
		)
}

// renderStatus renders the jobs list or status messages
func (j *JobsPage) renderStatus() app.UI {
	if j.loading && len(j.jobs) == 0 {
		return app.Div().Class("loading").Body(
			app.Text("Loading jobs..."),
		)
	}

	if j.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + j.error),
		)
	}

	if len(j.jobs) == 0 {
		return app.Div().Class("info").Body(
			app.P().Text("No conversions yet. Jobs appear here as soon as a conversion starts."),
		)
	}

	items := make([]app.UI, 0, len(j.jobs))
	now := time.Now()
	for i := range j.jobs {
		items = append(items, renderJob(&j.jobs[i], now))
	}
	return app.Div().Class("jobs-list").Body(items...)
}

// renderJob renders a single job card
func renderJob(job *Job, now time.Time) app.UI {
	return app.Div().
		Class("job-card job-"+job.Status).
		Body(
			app.Div().Class("job-header").Body(
				app.Div().Class("job-type").Body(
					app.Strong().Text(Tool{ID: job.Tool}.Label()),
					app.Span().Class("job-status-badge job-status-"+job.Status).
						Body(app.Text(job.Status)),
				),
				app.Div().Class("job-time").Body(
					app.Text(formatTime(job.CreatedAt, now)),
				),
			),

			app.Div().Class("job-message").Body(
				app.Text(jobSummary(job)),
			),

			app.If(job.Error != "", func() app.UI {
				return app.Div().Class("job-error").Body(
					app.Strong().Text("Error: "),
					app.Text(job.Error),
				)
			}),

			app.Div().Class("job-footer").Body(
				app.Div().Class("job-id").Body(
					app.Text("ID: "+job.ID),
				),
				app.If(job.CompletedAt != "", func() app.UI {
					return app.Div().Class("job-completed").Body(
						app.Text(fmt.Sprintf("Finished in %d ms", job.DurationMs)),
					)
				}),
			),
		)
}

// jobSummary describes the inputs and, once completed, the outputs of a job
func jobSummary(job *Job) string {
	files := "files"
	if job.InputCount == 1 {
		files = "file"
	}
	summary := fmt.Sprintf("%d %s in (%s)", job.InputCount, files, formatBytes(job.InputBytes))
	if job.Status == "completed" {
		summary += fmt.Sprintf(", %s out (%s)", job.OutputName, formatBytes(job.OutputBytes))
		if job.OutputCount > 1 {
			summary += fmt.Sprintf(", %d files zipped", job.OutputCount)
		}
	}
	return summary
}

// onRefreshClick handles the refresh button click
func (j *JobsPage) onRefreshClick(ctx app.Context, e app.Event) {
	j.loadJobs(ctx)
}

// onAutoRefreshChange handles auto-refresh checkbox change
func (j *JobsPage) onAutoRefreshChange(ctx app.Context, e app.Event) {
	j.autoRefresh = ctx.JSSrc().Get("checked").Bool()
	ctx.Update()
}

// loadJobs fetches jobs from the API
func (j *JobsPage) loadJobs(ctx app.Context) {
	j.loading = true
	j.error = ""
	ctx.Update()

	var jobs []Job
	fetchJSON(ctx, "/api/jobs?limit=50", &jobs, func(err error) {
		j.loading = false
		if err != nil {
			j.error = err.Error()
			return
		}
		j.jobs = jobs
	})
}
