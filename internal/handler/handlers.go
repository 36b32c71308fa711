package handler

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/gosimple/slug"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/imagemeta"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/search"
	"github.com/gvfbla/jobboard/internal/server"
	"github.com/snabb/sitemap"
)

func openWorkspace(svr server.Server, w http.ResponseWriter, r *http.Request) (*server.Workspace, bool) {
	ws, err := svr.Workspace(w, r)
	if err != nil {
		svr.Log(err, "unable to open workspace")
		svr.TEXT(w, http.StatusInternalServerError, "something went wrong, please try again")
		return nil, false
	}
	return ws, true
}

func render(svr server.Server, w http.ResponseWriter, status int, view string, data map[string]interface{}) {
	if err := svr.Render(w, status, view, data); err != nil {
		svr.Log(err, fmt.Sprintf("unable to render %s", view))
		svr.TEXT(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

// localTarget keeps post-login redirects on this site. Browsers drop tabs
// and newlines from a Location, so "/\t/host" would turn into "//host".
func localTarget(next string) string {
	for i := 0; i < len(next); i++ {
		if next[i] < 0x20 || next[i] == 0x7f {
			return "/"
		}
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	return next
}

func jobPath(p listing.Posting) string {
	return fmt.Sprintf("/job/%s/%s", p.ID, slug.Make(p.JobTitle+" "+p.CompanyName))
}

func IndexPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		filter := search.Filter{
			Query:    strings.TrimSpace(q.Get("q")),
			Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
			JobType:  strings.TrimSpace(q.Get("type")),
		}
		if filter.Category == "" {
			filter.Category = search.CategoryAll
		}
		stats, err := svr.Stats(r.Context())
		if err != nil {
			svr.Log(err, "unable to load stats")
		}
		render(svr, w, http.StatusOK, "home.html", ws.Page(map[string]interface{}{
			"Postings":   search.Visible(ws.Listings.All(), filter),
			"Total":      ws.Listings.Len(),
			"Filter":     filter,
			"Categories": search.Categories,
			"JobTypes":   listing.JobTypes,
			"Stats":      stats,
		}))
	}
}

func JobPageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		vars := mux.Vars(r)
		p, ok := ws.Listings.Get(vars["id"])
		if !ok {
			// the posting may be newer than the parked snapshot
			ws.Refresh()
			p, ok = ws.Listings.Get(vars["id"])
		}
		if !ok {
			render(svr, w, http.StatusNotFound, "404.html", ws.Page(nil))
			return
		}
		if canonical := jobPath(p); r.URL.Path != canonical {
			svr.Redirect(w, r, http.StatusMovedPermanently, canonical)
			return
		}
		render(svr, w, http.StatusOK, "job.html", ws.Page(map[string]interface{}{
			"Posting":   p,
			"MetaImage": svr.URL("/job/" + p.ID + "/image.png"),
		}))
	}
}

func PostingImageHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		p, ok := ws.Listings.Get(mux.Vars(r)["id"])
		if !ok {
			svr.MEDIA(w, http.StatusNotFound, []byte{}, "image/png")
			return
		}
		media, err := imagemeta.GenerateImageForPosting(p, svr.GetConfig().SiteName)
		if err != nil {
			svr.Log(err, "unable to generate media for posting")
			svr.MEDIA(w, http.StatusInternalServerError, []byte{}, "image/png")
			return
		}
		mediaBytes, err := ioutil.ReadAll(media)
		if err != nil {
			svr.Log(err, "unable to read media for posting")
			svr.MEDIA(w, http.StatusInternalServerError, []byte{}, "image/png")
			return
		}
		svr.MEDIA(w, http.StatusOK, mediaBytes, "image/png")
	}
}

func RefreshHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := openWorkspace(svr, w, r)
		if !ok {
			return
		}
		if o := ws.Refresh(); o.State == dispatch.Failed {
			ws.FlashOutcome(o)
		}
		svr.Redirect(w, r, http.StatusSeeOther, localTarget(r.FormValue("next")))
	}
}

func approved(svr server.Server, r *http.Request) ([]listing.Posting, error) {
	all, err := svr.API().ListPostings(r.Context(), "")
	if err != nil {
		return nil, err
	}
	out := make([]listing.Posting, 0, len(all))
	for _, p := range all {
		if p.Status.Is(listing.StatusApproved) {
			out = append(out, p)
		}
	}
	return out, nil
}

func ServeRSSFeed(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postings, err := approved(svr, r)
		if err != nil {
			svr.Log(err, "unable to retrieve postings for RSS Feed")
			svr.XML(w, http.StatusInternalServerError, []byte{})
			return
		}
		cfg := svr.GetConfig()
		now := time.Now()
		feed := &feeds.Feed{
			Title:       cfg.SiteName,
			Link:        &feeds.Link{Href: svr.URL("/")},
			Description: cfg.SiteName + " jobs for students",
			Author:      &feeds.Author{Name: cfg.SiteName},
			Created:     now,
		}
		for i, p := range postings {
			if i >= cfg.PostingsPerRSS {
				break
			}
			desc := p.JobDescription
			if p.StartingSalary != "" {
				desc += "\n\n**Starting Salary:** " + p.StartingSalary
			}
			feed.Items = append(feed.Items, &feeds.Item{
				Id:          p.ID,
				Title:       fmt.Sprintf("%s with %s - %s", p.JobTitle, p.CompanyName, p.Location),
				Link:        &feeds.Link{Href: svr.URL(jobPath(p))},
				Description: string(svr.MarkdownToHTML(desc)),
				Author:      &feeds.Author{Name: p.CompanyName},
				Created:     now,
			})
		}
		rssFeed, err := feed.ToRss()
		if err != nil {
			svr.Log(err, "unable to convert rss feed to xml")
			svr.XML(w, http.StatusInternalServerError, []byte{})
			return
		}
		svr.XML(w, http.StatusOK, []byte(rssFeed))
	}
}

func SitemapHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postings, err := approved(svr, r)
		if err != nil {
			svr.Log(err, "unable to retrieve postings for sitemap")
			svr.TEXT(w, http.StatusInternalServerError, "unable to fetch sitemap")
			return
		}
		now := time.Now()
		sm := sitemap.New()
		sm.Add(&sitemap.URL{Loc: svr.URL("/"), LastMod: &now, ChangeFreq: sitemap.Daily})
		for _, p := range postings {
			sm.Add(&sitemap.URL{Loc: svr.URL(jobPath(p)), ChangeFreq: sitemap.Weekly})
		}
		buf := new(bytes.Buffer)
		if _, err := sm.WriteTo(buf); err != nil {
			svr.Log(err, "sitemap.WriteTo")
			svr.TEXT(w, http.StatusInternalServerError, "unable to save sitemap file")
			return
		}
		svr.XML(w, http.StatusOK, buf.Bytes())
	}
}
