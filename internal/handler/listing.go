package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/search"
	"github.com/gvfbla/jobboard/internal/server"
)

func CreateListingPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		render(svr, w, http.StatusOK, "new-listing.html", ws.Page(map[string]interface{}{
			"JobTypes":   listing.JobTypes,
			"Categories": search.Categories[1:],
		}))
	}
}

func CreateListingHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		o := ws.Dispatcher.CreateListing(r.Context(), listing.Draft{
			JobTitle:       r.FormValue("job_title"),
			CompanyName:    r.FormValue("company_name"),
			JobDescription: r.FormValue("job_description"),
			JobType:        r.FormValue("job_type"),
			StartingSalary: r.FormValue("starting_salary"),
			Location:       r.FormValue("location"),
			Skills:         r.FormValue("skills"),
			Category:       r.FormValue("category"),
		})
		ws.FlashOutcome(o)
		if o.State != dispatch.Succeeded {
			svr.Redirect(w, r, http.StatusSeeOther, "/listings/new")
			return
		}
		ws.Save()
		svr.InvalidateStats()
		svr.Redirect(w, r, http.StatusSeeOther, "/")
	}
}

func ApplyPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		p, ok := ws.Listings.Get(mux.Vars(r)["id"])
		if !ok {
			render(svr, w, http.StatusNotFound, "404.html", ws.Page(nil))
			return
		}
		render(svr, w, http.StatusOK, "apply.html", ws.Page(map[string]interface{}{
			"Posting": p,
		}))
	}
}

func ApplyHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		id := mux.Vars(r)["id"]
		o := ws.Dispatcher.Apply(r.Context(), api.Application{
			PostingID:   id,
			FirstName:   r.FormValue("first_name"),
			LastName:    r.FormValue("last_name"),
			PhoneNumber: r.FormValue("phone_number"),
			Email:       r.FormValue("email"),
			Education:   r.FormValue("education"),
			Experience:  r.FormValue("experience"),
			References:  r.FormValue("references"),
		})
		ws.FlashOutcome(o)
		if o.State != dispatch.Succeeded {
			svr.Redirect(w, r, http.StatusSeeOther, "/apply/"+id)
			return
		}
		svr.Redirect(w, r, http.StatusSeeOther, "/")
	}
}
