package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/server"
)

func ManagePageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		render(svr, w, http.StatusOK, "manage.html", ws.Page(map[string]interface{}{
			"Pending": ws.Listings.Pending(),
		}))
	}
}

func moderated(svr server.Server, ws *server.Workspace, w http.ResponseWriter, r *http.Request, o dispatch.Outcome) {
	ws.FlashOutcome(o)
	if o.State == dispatch.Succeeded {
		ws.Save()
		svr.InvalidateStats()
	}
	svr.Redirect(w, r, http.StatusSeeOther, "/manage")
}

func ApproveHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		moderated(svr, ws, w, r, ws.Dispatcher.Approve(r.Context(), mux.Vars(r)["id"]))
	}
}

func RejectHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		moderated(svr, ws, w, r, ws.Dispatcher.Reject(r.Context(), mux.Vars(r)["id"], r.FormValue("reason")))
	}
}
