package handler

import (
	"net/http"

	"github.com/gvfbla/jobboard/internal/middleware"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/server"
)

func canCreate(c role.Capabilities) bool { return c.CanCreateListing }

func canApply(c role.Capabilities) bool { return c.CanApply }

func canModerate(c role.Capabilities) bool { return c.CanModerate }

func RegisterRoutes(svr server.Server) {
	guard := func(allowed func(role.Capabilities) bool, next http.HandlerFunc) http.HandlerFunc {
		return middleware.CapabilityMiddleware(svr.Capabilities, allowed, next)
	}
	get := []string{http.MethodGet}
	post := []string{http.MethodPost}

	svr.RegisterRoute("/", IndexPageHandler(svr), get)
	svr.RegisterRoute("/job/{id}", JobPageHandler(svr), get)
	svr.RegisterRoute("/job/{id}/image.png", PostingImageHandler(svr), get)
	svr.RegisterRoute("/job/{id}/{slug}", JobPageHandler(svr), get)
	svr.RegisterRoute("/x/refresh", RefreshHandler(svr), post)

	svr.RegisterRoute("/login", LoginPageHandler(svr), get)
	svr.RegisterRoute("/x/auth/login", LoginHandler(svr), post)
	svr.RegisterRoute("/register", RegisterPageHandler(svr), get)
	svr.RegisterRoute("/x/auth/register", RegisterHandler(svr), post)
	svr.RegisterRoute("/x/auth/logout", LogoutHandler(svr), post)

	svr.RegisterRoute("/listings/new", guard(canCreate, CreateListingPageHandler(svr)), get)
	svr.RegisterRoute("/x/listings", CreateListingHandler(svr), post)
	svr.RegisterRoute("/apply/{id}", guard(canApply, ApplyPageHandler(svr)), get)
	svr.RegisterRoute("/x/apply/{id}", ApplyHandler(svr), post)

	svr.RegisterRoute("/manage", guard(canModerate, ManagePageHandler(svr)), get)
	svr.RegisterRoute("/x/manage/approve/{id}", ApproveHandler(svr), post)
	svr.RegisterRoute("/x/manage/reject/{id}", RejectHandler(svr), post)

	svr.RegisterRoute("/rss", ServeRSSFeed(svr), get)
	svr.RegisterRoute("/sitemap.xml", SitemapHandler(svr), get)
}
