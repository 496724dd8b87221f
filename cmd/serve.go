package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Post("/transcripts", func(w http.ResponseWriter, req *http.Request) {
				var body struct {
					Text         string `json:"text"`
					Language     string `json:"language"`
					DurationSecs int    `json:"duration_secs"`
				}
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
				if body.Text == "" {
					writeError(w, http.StatusBadRequest, "text is required")
					return
				}

				t := &model.Transcript{Text: body.Text, Language: body.Language, DurationSecs: body.DurationSecs}
				if err := env.Store.PutTranscript(req.Context(), t); err != nil {
					writeError(w, http.StatusInternalServerError, "store transcript failed")
					return
				}
				writeJSON(w, http.StatusCreated, t)
			})

			r.Post("/transcripts/{id}/analyze", func(w http.ResponseWriter, req *http.Request) {
				transcriptID := chi.URLParam(req, "id")
				if _, err := env.Store.GetTranscript(req.Context(), transcriptID); err != nil {
					writeError(w, http.StatusNotFound, "transcript not found")
					return
				}

				// Analysis runs in the background; poll the run for progress.
				go func() {
					run, err := env.Pipeline.Run(ctx, transcriptID)
					if err != nil {
						zap.L().Error("async analysis failed",
							zap.String("transcript_id", transcriptID),
							zap.Error(err),
						)
						return
					}
					zap.L().Info("async analysis complete", zap.String("run_id", run.ID))
				}()

				writeJSON(w, http.StatusAccepted, map[string]string{
					"status":        "accepted",
					"transcript_id": transcriptID,
				})
			})

			r.Post("/runs/{id}/enrich", func(w http.ResponseWriter, req *http.Request) {
				runID := chi.URLParam(req, "id")
				var body struct {
					ProfileURLs map[string]string `json:"profile_urls"`
					Website     map[string]string `json:"website"`
				}
				if req.Body != nil {
					_ = json.NewDecoder(req.Body).Decode(&body)
				}

				var extra []model.EnrichmentQuery
				for name, url := range body.ProfileURLs {
					extra = append(extra, model.EnrichmentQuery{Kind: model.SubjectStakeholder, Name: name, URL: url})
				}
				for name, url := range body.Website {
					extra = append(extra, model.EnrichmentQuery{Kind: model.SubjectCompany, Name: name, URL: url})
				}

				run, err := env.Pipeline.Reenrich(req.Context(), runID, extra)
				if err != nil {
					writeError(w, http.StatusUnprocessableEntity, err.Error())
					return
				}
				writeJSON(w, http.StatusOK, run)
			})

			r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
				run, err := env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					writeError(w, http.StatusNotFound, "run not found")
					return
				}
				writeJSON(w, http.StatusOK, run)
			})

			r.Get("/runs/{id}/report", func(w http.ResponseWriter, req *http.Request) {
				report, err := env.Store.GetReport(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					writeError(w, http.StatusNotFound, "report not found")
					return
				}
				writeJSON(w, http.StatusOK, report)
			})
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
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
