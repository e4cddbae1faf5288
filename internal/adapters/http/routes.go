package web

import "net/http"

// registerRoutes wires every page and endpoint of the app.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", handleIndex)

	// Schedules
	mux.HandleFunc("/schedules", handleSchedules)
	mux.HandleFunc("/schedules/month", handleScheduleMonth)
	mux.HandleFunc("/schedules/new", handleScheduleNew)
	mux.HandleFunc("/schedules/delete", handleScheduleDelete)
	mux.HandleFunc("/schedules.ics", handleScheduleExport)
	mux.HandleFunc("/attendances/toggle", handleAttendanceToggle)

	// Members
	mux.HandleFunc("/members/details", handleMemberDetails)

	// Organizer
	mux.HandleFunc("/unlock", handleUnlock)
	mux.HandleFunc("/perf", handlePerf)
}
