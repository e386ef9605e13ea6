package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/model"
	"github.com/sells-group/budget-cli/internal/store"
	"github.com/sells-group/budget-cli/internal/workbook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for workbook analysis and imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		handler := buildRouter(apiServer{
			store:     st,
			options:   analyzerOptions(cfg.Budget),
			maxUpload: int64(cfg.Server.MaxUploadMB) << 20,
			logger:    zap.L(),
		}, rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst), cfg.Server.AllowedOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiServer holds the dependencies shared by the HTTP handlers. store may
// be nil, in which case import routes answer 503.
type apiServer struct {
	store     store.Store
	options   budget.Options
	maxUpload int64
	logger    *zap.Logger
}

// buildRouter wires the API routes. The analyze endpoint is rate limited
// by limiter; a nil limiter disables limiting.
func buildRouter(s apiServer, limiter *rate.Limiter, origins []string) http.Handler {
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 32 << 20
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(rateLimit(limiter)).Post("/budgets/analyze", s.handleAnalyze)
		r.Route("/imports", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListImports)
			r.Get("/{id}", s.handleGetImport)
			r.Get("/{id}/line-items", s.handleLineItems)
			r.Get("/{id}/wbs", s.handleWBS)
		})
	})
	return r
}

func (s apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	if save && s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	opts := s.options
	if raw := r.FormValue("mappings"); raw != "" {
		mappings, err := parseMappings([]byte(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.CustomMappings = mappings
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}
	wb, err := workbook.Parse(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	an := budget.NewAnalyzer(opts, s.logger)
	if !save {
		res, err := an.Analyze(wb)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, _, err := importWorkbook(r.Context(), s.store, an, wb, filepath.Base(header.Filename))
	if err != nil {
		s.logger.Error("import failed", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s apiServer) handleListImports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ImportFilter{FileName: q.Get("file")}
	if v := q.Get("status"); v != "" {
		st, err := model.ParseImportStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = st
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	imports, err := s.store.ListImports(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imports)
}

func (s apiServer) handleGetImport(w http.ResponseWriter, r *http.Request) {
	imp, err := s.store.GetImport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

func (s apiServer) handleLineItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListLineItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		res := &budget.Result{LineItems: map[string][]budget.LineItem{"": items}, Sheets: []string{""}}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := writeResult(w, res, "csv"); err != nil {
			s.logger.Error("write csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s apiServer) handleWBS(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListWBSNodes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s apiServer) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s apiServer) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "import not found")
		return
	}
	s.logger.Error("store request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// rateLimit rejects requests beyond the limiter's budget with 429.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
