package httpapi

import (
	"net/http"
	"net/url"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Deps struct {
	Registry    *registry.Registry
	Logger      *zap.Logger
	CORSOrigins []string
	WS          ws.Config
	// History is nil when the archive is disabled.
	History HistoryReader
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", Healthz)
	r.Post("/create-room", CreateRoom(d.Registry, log))

	r.Route("/game/{code}", func(r chi.Router) {
		r.Get("/", GetRoom(d.Registry, log))
		r.Get("/status", GetStatus(d.Registry, log))
		r.Post("/result", SubmitResult(d.Registry, log))
		r.Post("/join", JoinRoom(d.Registry, log))
		r.Route("/user/{userID}", func(r chi.Router) {
			r.Patch("/team", UpdateTeam(d.Registry, log))
			r.Patch("/ready", UpdateReady(d.Registry, log))
			r.Delete("/", LeaveRoom(d.Registry, log))
		})
	})

	if d.History != nil {
		r.Get("/history", History(d.History, log))
	}

	wsCfg := d.WS
	if wsCfg.OriginPatterns == nil {
		wsCfg.OriginPatterns = originHosts(d.CORSOrigins)
	}
	r.Get("/ws/draft", ws.Handler(d.Registry, wsCfg, log))
	return r
}

// requestLogger logs one line per request. Upgraded sockets log when they close.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// originHosts reduces CORS origins to the host patterns the websocket
// handshake checks against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
