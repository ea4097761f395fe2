package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/provider"
	"github.com/groupcart/catalog-cli/internal/search"
	"github.com/groupcart/catalog-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the listing search and catalog API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := initSearchService()
		router := buildRouter(svc, st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the HTTP API. The store may be nil; the catalog
// endpoints then answer 503.
func buildRouter(svc *search.Service, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/search", func(w http.ResponseWriter, req *http.Request) {
		params, err := parseSearchParams(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		result, err := svc.Search(req.Context(), params)
		if err != nil {
			status := http.StatusBadGateway
			if eris.Is(err, provider.ErrUnsupportedPlatform) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/api/listings", func(w http.ResponseWriter, req *http.Request) {
		if st == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog store not configured"})
			return
		}

		platform, ok := model.ParsePlatform(req.URL.Query().Get("platform"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown platform selector"})
			return
		}
		filter := store.Filter{
			Platform: platform,
			Category: req.URL.Query().Get("category"),
		}
		limit := intParam(req, "limit", 20)
		offset := intParam(req, "offset", 0)

		total, err := st.CountListings(req.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		items, err := st.ListListings(req.Context(), filter, limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if items == nil {
			items = []model.SavedListingRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
	})

	return r
}

// requestID tags every request with a correlation ID for log stitching.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, req)
	})
}

func parseSearchParams(req *http.Request) (search.Params, error) {
	q := req.URL.Query()
	if q.Get("q") == "" {
		return search.Params{}, eris.New("q is required")
	}
	platform, ok := model.ParsePlatform(q.Get("platform"))
	if !ok {
		return search.Params{}, eris.Errorf("unknown platform %q", q.Get("platform"))
	}

	return search.Params{
		Q:        q.Get("q"),
		Platform: platform,
		Offset:   intParam(req, "offset", 0),
		Limit:    intParam(req, "limit", 0),
		MinPrice: floatParam(req, "min_price"),
		MaxPrice: floatParam(req, "max_price"),
		MinMOQ:   intParam(req, "min_moq", 0),
		MaxMOQ:   intParam(req, "max_moq", 0),
		Headless: boolParam(req, "headless"),
		NoCache:  boolParam(req, "nocache"),
		Debug:    boolParam(req, "debug"),
	}, nil
}

func intParam(req *http.Request, name string, def int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func floatParam(req *http.Request, name string) float64 {
	f, err := strconv.ParseFloat(req.URL.Query().Get(name), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func boolParam(req *http.Request, name string) bool {
	b, _ := strconv.ParseBool(req.URL.Query().Get(name))
	return b
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
