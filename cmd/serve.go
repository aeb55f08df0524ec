package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
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

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/store"
)

var (
	servePort     int
	serveStoreDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve imported meetings and reports over a read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx, serveStoreDir)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(st, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.String("store_dir", st.Dir()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// meetingDetail is a meeting together with its recorded artifacts.
type meetingDetail struct {
	Meeting   *model.Meeting   `json:"meeting"`
	Artifacts []model.Artifact `json:"artifacts"`
}

func loadMeetingDetail(ctx context.Context, st store.Store, id string) (*meetingDetail, error) {
	m, err := st.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	arts, err := st.ListArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &meetingDetail{Meeting: m, Artifacts: arts}, nil
}

// buildRouter wires the read-only API over the store.
func buildRouter(st store.Store, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/meetings", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			filter := store.MeetingFilter{
				Limit:  queryInt(req, "limit"),
				Offset: queryInt(req, "offset"),
			}
			meetings, err := st.ListMeetings(req.Context(), filter)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"meetings": meetings})
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			detail, err := loadMeetingDetail(req.Context(), st, chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, detail)
		})

		r.Get("/{id}/artifacts/{name}", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			data, err := st.GetArtifact(req.Context(), chi.URLParam(req, "id"), name)
			if err != nil {
				writeError(w, err)
				return
			}
			ct := mime.TypeByExtension(filepath.Ext(name))
			if ct == "" {
				ct = "application/octet-stream"
			}
			w.Header().Set("Content-Type", ct)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
		})
	})

	return r
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	case eris.Is(err, store.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid artifact name"})
		return
	}
	zap.L().Error("api request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveStoreDir, "store-dir", "", "meeting store directory (default from config)")
	rootCmd.AddCommand(serveCmd)
}
