package web

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"feeminton/internal/adapters/api"
	"feeminton/internal/adapters/http/middleware"
	"feeminton/internal/application/schedulesview"
	"feeminton/internal/domain/calendar"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorPayload struct {
	Error string `json:"error"`
}

// apiFor returns the API base selected by the page's api parameter and a
// client for it.
func apiFor(r *http.Request) (api.Config, *api.Client) {
	cfg, _ := services.APIs.Select(r.URL.Query().Get(api.QueryParam))
	return cfg, api.NewClient(cfg, services.HTTPClient)
}

// locked reports whether the organizer gate blocks mutations for this request.
func locked(r *http.Request) bool {
	if !services.Gate.Enabled() {
		return false
	}
	sess, ok := middleware.GetSessionFromContext(r.Context())
	return !ok || !sess.Organizer
}

const lockedMessage = "Organizer passcode required."

func unlockHref(r *http.Request) string {
	return "/unlock?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	cfg, _ := services.APIs.Select(r.URL.Query().Get(api.QueryParam))
	data["GateEnabled"] = services.Gate.Enabled()
	data["Locked"] = locked(r)
	data["UnlockHref"] = unlockHref(r)
	data["APIBase"] = cfg.Param()

	funcMap := template.FuncMap{
		"csrfField": func() template.HTML {
			return csrf.TemplateField(r)
		},
		"link": func(href string) string {
			return cfg.Link(href, r.URL)
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(assets, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// pageParams are the view parameters every schedules URL carries.
type pageParams struct {
	GroupID   int
	GroupName string
	Month     calendar.YearMonth
}

// parsePageParams reads groupId, groupName, year and month. A missing or
// invalid month falls back to the current one.
func parsePageParams(q url.Values) pageParams {
	p := pageParams{GroupName: q.Get("groupName"), Month: calendar.MonthOf(timeNow())}
	if id, err := strconv.Atoi(q.Get("groupId")); err == nil && id > 0 {
		p.GroupID = id
	}
	y, errY := strconv.Atoi(q.Get("year"))
	m, errM := strconv.Atoi(q.Get("month"))
	if errY == nil && errM == nil {
		if ym, err := calendar.NewYearMonth(y, m); err == nil {
			p.Month = ym
		}
	}
	return p
}

// query renders the parameters back into a URL query.
func (p pageParams) query() url.Values {
	q := url.Values{}
	if p.GroupID > 0 {
		q.Set("groupId", strconv.Itoa(p.GroupID))
	}
	if p.GroupName != "" {
		q.Set("groupName", p.GroupName)
	}
	q.Set("year", strconv.Itoa(p.Month.Year))
	q.Set("month", strconv.Itoa(p.Month.Month))
	return q
}

func viewKeyFor(r *http.Request, cfg api.Config, p pageParams) viewKey {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return viewKey{session: sess.Token, base: cfg.Param(), groupID: p.GroupID, month: p.Month}
}

// controllerFor returns the session's controller for the page's group and
// month, creating it on first use, with the read-only flag matching the gate.
// Pages on different months never share a controller.
func controllerFor(r *http.Request, p pageParams) (*schedulesview.Controller, viewKey) {
	cfg, client := apiFor(r)
	key := viewKeyFor(r, cfg, p)
	ctrl := views.Controller(key, func() *schedulesview.Controller {
		opts := schedulesview.Options{
			Link: func(href string) string { return cfg.Link(href, nil) },
		}
		if services.Metrics != nil {
			opts.Observer = services.Metrics
		}
		return schedulesview.NewController(client, schedulesview.State{
			GroupID:   p.GroupID,
			GroupName: p.GroupName,
			Month:     p.Month,
		}, opts)
	})
	ctrl.SetReadOnly(locked(r))
	return ctrl, key
}

type alertPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toAlertPayload(a *schedulesview.Alert) *alertPayload {
	if a == nil {
		return nil
	}
	return &alertPayload{Kind: a.Kind, Message: a.Message}
}

// gridPayload is the JSON form of the schedules grid used by in-page
// month navigation.
type gridPayload struct {
	URL      string        `json:"url"`
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Month    string        `json:"month"`
	Cards    []string      `json:"cards"`
	Empty    string        `json:"empty,omitempty"`
	Alert    *alertPayload `json:"alert,omitempty"`
	NewHref  string        `json:"newHref"`
	ICSHref  string        `json:"icsHref"`
}

// scheduleLinks builds the page links that depend on the shown month.
func scheduleLinks(cfg api.Config, v schedulesview.View) (newHref, icsHref string) {
	p := pageParams{GroupID: v.GroupID, GroupName: v.GroupName, Month: v.Month}
	q := p.query().Encode()
	return cfg.Link("/schedules/new?"+q, nil), cfg.Link("/schedules.ics?"+q, nil)
}

func buildGridPayload(cfg api.Config, v schedulesview.View, pageURL string) gridPayload {
	newHref, icsHref := scheduleLinks(cfg, v)
	out := gridPayload{
		URL:      pageURL,
		Title:    v.Title,
		Subtitle: v.Subtitle,
		Month:    v.Month.Key(),
		Cards:    []string{},
		Empty:    v.Empty,
		Alert:    toAlertPayload(v.Alert),
		NewHref:  newHref,
		ICSHref:  icsHref,
	}
	for _, c := range v.Cards {
		out.Cards = append(out.Cards, string(c.HTML))
	}
	return out
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
