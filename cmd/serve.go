package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/labeleval/internal/consensus"
	"github.com/sells-group/labeleval/internal/orchestrator"
	"github.com/sells-group/labeleval/internal/provider"
	"github.com/sells-group/labeleval/internal/store"
)

// maxUploadBytes caps label image uploads at 20MB.
const maxUploadBytes = 20 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP evaluation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reg := buildRegistry(ctx, st)

		fields, err := consensus.LoadFields(cfg.Consensus.FieldsFile)
		if err != nil {
			return err
		}

		api := &apiServer{store: st, registry: reg, fields: fields}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Route("/api", func(r chi.Router) {
			r.Post("/evaluate", api.handleEvaluate)
			r.Get("/evaluations", api.handleListEvaluations)
			r.Get("/evaluations/{id}", api.handleGetEvaluation)
			r.Get("/evaluations/{id}/consensus", api.handleGetConsensus)
			r.Get("/providers", api.handleProviders)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck // best-effort drain
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type apiServer struct {
	store    store.Store
	registry *provider.Registry
	fields   []string
}

// handleEvaluate accepts a multipart image upload, runs all configured
// providers, persists the run, and returns results plus consensus.
func (a *apiServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image")
		return
	}
	mimeType := detectImageMIME(header.Filename, image)

	var subset []provider.ID
	if names := r.FormValue("providers"); names != "" {
		subset, err = parseProviders(splitCommaList(names))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	orch := orchestrator.New(a.registry, subset)
	if len(orch.Services()) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no configured providers")
		return
	}

	evaluationID := uuid.New().String()
	run := orch.AnalyzeParallel(r.Context(), image, mimeType, evaluationID)

	if err := a.store.SaveRun(r.Context(), run, header.Filename, mimeType); err != nil {
		zap.L().Error("save run failed", zap.String("evaluation_id", evaluationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persist run")
		return
	}

	ec := consensus.CalculateEvaluationConsensus(evaluationID, run.Results, a.fields)
	writeJSON(w, http.StatusOK, map[string]any{
		"run":       run,
		"consensus": ec,
	})
}

func (a *apiServer) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	rows, err := a.store.ListEvaluations(r.Context(), store.EvaluationFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list evaluations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluations": rows})
}

func (a *apiServer) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	evaluation, err := a.store.GetEvaluation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	results, err := a.store.GetResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation": evaluation,
		"results":    results,
	})
}

func (a *apiServer) handleGetConsensus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := a.store.GetEvaluation(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	results, err := a.store.GetResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load results")
		return
	}
	writeJSON(w, http.StatusOK, consensus.CalculateEvaluationConsensus(id, results, a.fields))
}

func (a *apiServer) handleProviders(w http.ResponseWriter, r *http.Request) {
	status := a.registry.Status()
	out := make([]map[string]any, 0, len(provider.All()))
	for _, id := range provider.All() {
		out = append(out, map[string]any{
			"name":       id,
			"configured": status[id],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
