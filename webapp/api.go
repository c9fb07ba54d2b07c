package webapp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// GetAPIBaseURL returns the configured API base URL
// It reads from window.localpdfConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	config := app.Window().Get("localpdfConfig")
	if config.Truthy() {
		apiURL := config.Get("apiURL")
		if apiURL.Truthy() {
			return strings.TrimSuffix(apiURL.String(), "/")
		}
	}
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/tools") -> "http://backend:8000/api/tools"
// or just "/api/tools" if using relative URLs
func BuildAPIURL(path string) string {
	baseURL := GetAPIBaseURL()
	if baseURL == "" {
		return path // Relative URL
	}
	return baseURL + path
}

// Job is one conversion from the job log
type Job struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Status      string `json:"status"`
	RequestID   string `json:"requestId"`
	InputCount  int    `json:"inputCount"`
	InputBytes  int64  `json:"inputBytes"`
	OutputName  string `json:"outputName,omitempty"`
	OutputCount int    `json:"outputCount"`
	OutputBytes int64  `json:"outputBytes"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"createdAt"`
	StartedAt   string `json:"startedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	DurationMs  int64  `json:"durationMs"`
}

// Tool is one entry of /api/tools
type Tool struct {
	ID      string   `json:"id"`
	Arity   string   `json:"arity"`
	Accepts []string `json:"accepts"`
}

// Label is the tool as shown in menus, e.g. "Merge PDF (pdf)"
func (t Tool) Label() string {
	words := strings.Split(t.ID, "-")
	for i, word := range words {
		switch word {
		case "pdf", "pdfa":
			words[i] = strings.ToUpper(word)
		case "to":
		default:
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	label := strings.Join(words, " ")
	if len(t.Accepts) > 0 {
		label += " (" + strings.Join(t.Accepts, ", ") + ")"
	}
	return label
}

// fetchJSON GETs path and decodes the JSON body into out on the UI goroutine, then calls done with any error
func fetchJSON(ctx app.Context, path string, out any, done func(err error)) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL(path))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]
			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}
				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				ctx.Dispatch(func(ctx app.Context) {
					if status < 200 || status >= 300 {
						done(fmt.Errorf("%s (status: %d)", errorText(jsonStr), status))
						return
					}
					if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
						done(fmt.Errorf("failed to parse response: %w", err))
						return
					}
					done(nil)
				})
				return nil
			}))
			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				done(fmt.Errorf("network error: could not connect to server"))
			})
			return nil
		}))
	})
}

// errorText pulls the message out of an {"error": "..."} body
func errorText(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Error == "" {
		return "request failed"
	}
	return payload.Error
}

// formatBytes renders a byte count as B, KB or MB
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// formatTime formats an RFC 3339 time relative to now
func formatTime(timeStr string, now time.Time) string {
	if timeStr == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return timeStr
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	return t.Format("Jan 2, 2006 at 3:04 PM")
}
