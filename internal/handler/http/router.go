package http

import (
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the deployment settings the router needs.
type RouterOptions struct {
	AppName        string
	Version        string
	Env            string
	LogLevel       slog.Level
	AllowedOrigins []string
	AllowedRoles   []string
	// FilesURL is the path prefix stored exports are served under
	FilesURL string
}

func NewRouter(JWTService jwt.Service, attendanceHandler AttendanceHandler, fileHandler FileHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.AppName),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if fileHandler != nil {
		exportPattern := filesPrefix(opts.FilesURL) + "/exports/{owner}/{name}"
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Get(exportPattern, fileHandler.DownloadExport)
			r.Delete(exportPattern, fileHandler.DeleteExport)
		})
	}

	r.Route("/api/v1/attendance", func(r chi.Router) {
		// The event stream authenticates with the short-lived SSE token in the query string
		r.Get("/events", attendanceHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireRole(opts.AllowedRoles...))

			r.Post("/events/token", attendanceHandler.GetSSEToken)

			r.Route("/filters", func(r chi.Router) {
				r.Get("/", attendanceHandler.GetFilters)
				r.Put("/{level}", attendanceHandler.SelectFilter)
			})

			r.Route("/query", func(r chi.Router) {
				r.Put("/", attendanceHandler.ApplyQuery)
				r.Post("/refresh", attendanceHandler.Refresh)
				r.Put("/search", attendanceHandler.Search)
			})

			r.Get("/records", attendanceHandler.GetRecords)
			r.Get("/records.xlsx", attendanceHandler.DownloadWorkbook)
			r.Get("/stats", attendanceHandler.GetStats)
			r.Get("/summary.pdf", attendanceHandler.DownloadSummaryPDF)
			r.Post("/export", attendanceHandler.Export)
		})
	})
	return r
}

// filesPrefix reduces the storage base URL to its path, e.g.
// "http://localhost:8080/files" becomes "/files".
func filesPrefix(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil {
		baseURL = u.Path
	}
	return "/" + strings.Trim(baseURL, "/")
}
