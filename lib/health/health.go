package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
)

type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is the health check response. Status is "ok" only when every
// component is.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        Component `json:"db"`
	Data      Component `json:"data"`
}

// Check returns a handler that pings the history database and verifies the
// artifact directory is readable. A nil db is reported as an error. artifacts
// are the file names expected in dataDir; missing ones are reported without
// failing the check.
func Check(db *gorm.DB, dataDir string, artifacts []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
			DB:        checkDB(ctx, db),
			Data:      checkData(dataDir, artifacts),
		}

		status := http.StatusOK
		if health.DB.Status == "error" || health.Data.Status == "error" {
			health.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, health, status)
	}
}

func checkDB(ctx context.Context, db *gorm.DB) Component {
	if db == nil {
		return Component{Status: "error", Message: "History database not opened"}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return Component{Status: "error", Message: "Failed to get database connection"}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Component{Status: "error", Message: "Database ping failed"}
	}
	return Component{Status: "ok"}
}

func checkData(dir string, artifacts []string) Component {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Component{Status: "error", Message: "Data directory not found"}
	}

	var missing int
	for _, name := range artifacts {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing++
		}
	}
	if missing > 0 {
		return Component{Status: "partial", Message: fmt.Sprintf("%d of %d artifacts missing", missing, len(artifacts))}
	}
	return Component{Status: "ok"}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
