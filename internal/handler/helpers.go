package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/attendance/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// queryDate парсит дату YYYY-MM-DD из query; при отсутствии или ошибке — defaultVal.
func queryDate(r *http.Request, key string, defaultVal time.Time) time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return defaultVal
	}
	return t
}
