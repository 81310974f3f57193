package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/attendance/internal/middleware"
	"github.com/attendance/internal/model"
	"github.com/attendance/internal/oracle"
	"github.com/attendance/internal/repository"
	"github.com/attendance/internal/session"
)

// AttendanceHandler — REST-поверхность посещаемости: отметки прихода/ухода,
// статус, активация сессии, сводка и локальный журнал.
type AttendanceHandler struct {
	sessions *session.Manager
	hr       *oracle.Client
	journal  *repository.JournalRepository
}

func NewAttendanceHandler(sessions *session.Manager, hr *oracle.Client, journal *repository.JournalRepository) *AttendanceHandler {
	return &AttendanceHandler{sessions: sessions, hr: hr, journal: journal}
}

// checkRequest — тело отметки: геопозиция обязательна, confirm требуется для ухода.
type checkRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Confirm   bool    `json:"confirm"`
}

// CheckIn — POST /api/attendance/geo-checkin.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	ctrl := h.sessions.Controller(employeeID)
	loc := model.Location{Latitude: req.Latitude, Longitude: req.Longitude, Accuracy: req.Accuracy}
	if err := ctrl.CheckIn(r.Context(), loc); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

// CheckOut — POST /api/attendance/geo-checkout. Уход необратим, поэтому клиент
// обязан прислать confirm:true (подтверждение диалога на его стороне).
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "confirmation required")
		return
	}
	ctrl := h.sessions.Controller(employeeID)
	loc := model.Location{Latitude: req.Latitude, Longitude: req.Longitude, Accuracy: req.Accuracy}
	if err := ctrl.CheckOut(r.Context(), loc); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

// Status — GET /api/attendance/status. Чистое чтение, без примирения.
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	writeJSON(w, http.StatusOK, h.sessions.Controller(employeeID).Status())
}

// Activate — POST /api/attendance/activate: примирение кэша с HR-сервисом,
// запуск отсчёта при открытой смене. Идемпотентен.
func (h *AttendanceHandler) Activate(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	ctrl, err := h.sessions.Activate(r.Context(), employeeID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

// Deactivate — POST /api/attendance/deactivate: гасит отсчёт, смену не трогает.
func (h *AttendanceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	h.sessions.Deactivate(employeeID)
	w.WriteHeader(http.StatusNoContent)
}

// Summary — GET /api/attendance/summary?from=&to= (даты YYYY-MM-DD, по умолчанию сегодня).
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	today := time.Now()
	from := queryDate(r, "from", today)
	to := queryDate(r, "to", today)
	records, err := h.hr.Summary(r.Context(), employeeID, from, to)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// Journal — GET /api/attendance/journal?from=&to=: локальная история отметок агента.
// Обе границы — календарные даты включительно, как fromDate/toDate у Summary;
// журнал хранит метки времени, поэтому верхняя граница сдвигается на конец суток to.
func (h *AttendanceHandler) Journal(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	now := time.Now()
	from := queryDate(r, "from", now.AddDate(0, -1, 0))
	to := queryDate(r, "to", now).Add(24 * time.Hour)
	events, err := h.journal.ListByEmployee(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load journal")
		return
	}
	if events == nil {
		events = []model.AttendanceEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// writeSessionError транслирует ошибки контроллера и HR-клиента в HTTP-статусы.
// Сообщение HR-сервиса отдаётся клиенту как есть (он показывает его пользователю).
func writeSessionError(w http.ResponseWriter, err error) {
	var re *oracle.RequestError
	switch {
	case errors.Is(err, session.ErrLocationRequired):
		writeError(w, http.StatusBadRequest, "location required")
	case errors.Is(err, session.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, "already checked in")
	case errors.Is(err, session.ErrDayComplete):
		writeError(w, http.StatusConflict, "attendance already marked for today")
	case errors.Is(err, session.ErrNotCheckedIn):
		writeError(w, http.StatusConflict, "not checked in")
	case errors.As(err, &re):
		msg := re.Message
		if msg == "" {
			msg = "attendance service unavailable"
		}
		writeError(w, http.StatusBadGateway, msg)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
