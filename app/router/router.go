package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/letra-wholesale/order-sheet/app/admin"
	"github.com/letra-wholesale/order-sheet/app/catalog"
	"github.com/letra-wholesale/order-sheet/app/respond"
	"github.com/letra-wholesale/order-sheet/app/selection"
	"github.com/letra-wholesale/order-sheet/app/sizes"
	"github.com/letra-wholesale/order-sheet/metrics"
)

type Deps struct {
	Catalog   *catalog.CatalogHandler
	Selection *selection.SelectionHandler
	Sizes     *sizes.SizeHandler
	Gate      *admin.Gate
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// New wires every route behind the shared middleware stack.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(chimw.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/admin/login", d.Gate.HandleLogin)
	r.Post("/api/admin/logout", d.Gate.HandleLogout)
	r.Get("/api/admin/status", d.Gate.HandleStatus)

	d.Catalog.Mount(r, d.Gate.Require)
	d.Selection.Mount(r)
	r.Get("/api/sizes", d.Sizes.HandleGetAll)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request", fields...)
				return
			}
			logger.Debug("request", fields...)
		})
	}
}
