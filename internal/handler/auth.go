package handler

import (
	"net/http"
	"net/url"

	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/server"
)

func LoginPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		if ws.Session.Current().Authenticated() {
			svr.Redirect(w, r, http.StatusSeeOther, "/")
			return
		}
		render(svr, w, http.StatusOK, "login.html", ws.Page(map[string]interface{}{
			"Next": localTarget(r.URL.Query().Get("next")),
		}))
	}
}

func LoginHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		o := ws.Dispatcher.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
		ws.FlashOutcome(o)
		if o.State != dispatch.Succeeded {
			svr.Redirect(w, r, http.StatusSeeOther, "/login?next="+url.QueryEscape(localTarget(r.FormValue("next"))))
			return
		}
		// what the backend lists can depend on the credential
		ws.Refresh()
		svr.Redirect(w, r, http.StatusSeeOther, localTarget(r.FormValue("next")))
	}
}

func RegisterPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		if ws.Session.Current().Authenticated() {
			svr.Redirect(w, r, http.StatusSeeOther, "/")
			return
		}
		render(svr, w, http.StatusOK, "register.html", ws.Page(map[string]interface{}{
			"Roles": []role.Role{role.Student, role.Employer},
		}))
	}
}

func RegisterHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		selected, _ := role.Parse(r.FormValue("role"))
		o := ws.Dispatcher.Register(r.Context(), dispatch.Registration{
			Role:        selected,
			Username:    r.FormValue("username"),
			Password:    r.FormValue("password"),
			Email:       r.FormValue("email"),
			FullName:    r.FormValue("full_name"),
			CompanyName: r.FormValue("company_name"),
		})
		ws.FlashOutcome(o)
		if o.State != dispatch.Succeeded {
			svr.Redirect(w, r, http.StatusSeeOther, "/register")
			return
		}
		ws.Refresh()
		svr.Redirect(w, r, http.StatusSeeOther, "/")
	}
}

func LogoutHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		o := ws.Dispatcher.Logout(r.Context())
		ws.FlashOutcome(o)
		if o.State == dispatch.Succeeded {
			ws.Forget()
		}
		svr.Redirect(w, r, http.StatusSeeOther, "/")
	}
}
