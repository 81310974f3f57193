package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/attendance/internal/middleware"
	"github.com/attendance/internal/oracle"
)

const maxProofSize = 10 << 20 // 10MB

// CorrectionHandler — запрос корректировки отметки: двухшаговый поток
// (получить токен → отправить multipart с примечанием и файлом подтверждения).
type CorrectionHandler struct {
	hr *oracle.Client
}

func NewCorrectionHandler(hr *oracle.Client) *CorrectionHandler {
	return &CorrectionHandler{hr: hr}
}

// Get — GET /api/attendance/correction: данные корректировки и токен отправки.
func (h *CorrectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	data, err := h.hr.CorrectionData(r.Context(), employeeID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// List — GET /api/attendance/correction-requests: список запросов корректировки
// (кабинет HR). Тело ответа HR-сервиса отдаётся клиенту как есть.
func (h *CorrectionHandler) List(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	raw, err := h.hr.CorrectionRequests(r.Context(), employeeID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// Submit — POST /api/attendance/correction (multipart): token, correctionRemark,
// опционально proofFile. Прокидывается на HR-сервис как есть.
func (h *CorrectionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetEmployeeID(r.Context())
	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	token := r.FormValue("token")
	remark := r.FormValue("correctionRemark")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	if remark == "" {
		writeError(w, http.StatusBadRequest, "correctionRemark required")
		return
	}

	var (
		proof     multipart.File
		proofName string
	)
	file, header, err := r.FormFile("proofFile")
	switch {
	case err == nil:
		defer file.Close()
		proof = file
		proofName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// Файл подтверждения опционален.
	default:
		writeError(w, http.StatusBadRequest, "invalid proof file")
		return
	}

	msg, err := h.hr.SubmitCorrection(r.Context(), employeeID, token, remark, proofName, proof)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if msg == "" {
		msg = "correction request submitted"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
