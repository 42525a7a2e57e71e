package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/Naresh-ado/parking-final/internal/httputil"
	"github.com/Naresh-ado/parking-final/internal/monitoring"
	"github.com/Naresh-ado/parking-final/internal/security"
)

// AttachAdminRoutes mounts the journal debug pages under /debug/: a live SQL
// console, a JSON feed of recent decisions and an on-demand backup.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Gate journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("decisions", "Recent access decisions (JSON, ?limit=N)", http.HandlerFunc(db.handleDecisions))
	debug.Handle("backup", "Create and download a backup of the journal now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	decisions, err := db.RecentDecisions(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if decisions == nil {
		decisions = []Decision{}
	}
	httputil.WriteJSON(w, http.StatusOK, decisions)
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	backupPath, err := security.JoinWithin(os.TempDir(), fmt.Sprintf("gate-backup-%d.db", time.Now().UnixNano()))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
