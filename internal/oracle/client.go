// Package oracle — клиент HR-сервиса учёта посещаемости. Тонкий слой поверх
// HTTP+JSON: приход/уход с геопозицией, сводка за период, корректировки.
// Ретраев нет: любая ошибка терминальна для попытки и отдаётся вызывающему.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/attendance/internal/model"
)

// RequestError — отказ HR-сервиса (сеть, валидация, 5xx). Message берётся из тела
// ответа, когда сервер его прислал; иначе остаётся пустым.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hr service: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hr service: %d", e.StatusCode)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент HR-сервиса. token — сервисный токен агента,
// добавляется в Authorization каждого запроса; employeeID уходит в X-Employee-Id.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type checkRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

type checkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CheckIn регистрирует гео-приход сотрудника.
func (c *Client) CheckIn(ctx context.Context, employeeID string, loc model.Location) error {
	return c.postCheck(ctx, "/api/attendance/geo-checkin", employeeID, loc)
}

// CheckOut регистрирует гео-уход сотрудника.
func (c *Client) CheckOut(ctx context.Context, employeeID string, loc model.Location) error {
	return c.postCheck(ctx, "/api/attendance/geo-checkout", employeeID, loc)
}

func (c *Client) postCheck(ctx context.Context, path, employeeID string, loc model.Location) error {
	body, err := json.Marshal(checkRequest{Latitude: loc.Latitude, Longitude: loc.Longitude, Accuracy: loc.Accuracy})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req, employeeID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{StatusCode: resp.StatusCode, Message: readServerMessage(resp.Body)}
	}
	var cr checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err == nil && !cr.Success && cr.Message != "" {
		return &RequestError{StatusCode: resp.StatusCode, Message: cr.Message}
	}
	return nil
}

type summaryResponse struct {
	Records []model.DayRecord `json:"records"`
}

// Summary возвращает записи посещаемости сотрудника за интервал [from, to].
func (c *Client) Summary(ctx context.Context, employeeID string, from, to time.Time) ([]model.DayRecord, error) {
	q := url.Values{}
	q.Set("fromDate", from.Format("2006-01-02"))
	q.Set("toDate", to.Format("2006-01-02"))
	var sr summaryResponse
	if err := c.getJSON(ctx, "/api/attendance/my-summary?"+q.Encode(), employeeID, &sr); err != nil {
		return nil, err
	}
	return sr.Records, nil
}

// TodaySummary — записи за день, на который приходится day. Используется примирением
// состояний: локальный кэш против авторитетной записи сервера.
func (c *Client) TodaySummary(ctx context.Context, employeeID string, day time.Time) ([]model.DayRecord, error) {
	return c.Summary(ctx, employeeID, day, day)
}

// CorrectionData — шаг 1 корректировки: сервер выдаёт токен, обязательный для отправки.
func (c *Client) CorrectionData(ctx context.Context, employeeID string) (*model.CorrectionData, error) {
	q := url.Values{}
	q.Set("employeeId", employeeID)
	var cd model.CorrectionData
	if err := c.getJSON(ctx, "/api/attendance/correction-request?"+q.Encode(), employeeID, &cd); err != nil {
		return nil, err
	}
	return &cd, nil
}

// SubmitCorrection — шаг 2: multipart с токеном, примечанием и (опционально) файлом
// подтверждения. Возвращает сообщение сервера.
func (c *Client) SubmitCorrection(ctx context.Context, employeeID, token, remark, proofName string, proof io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("token", token); err != nil {
		return "", err
	}
	if err := mw.WriteField("correctionRemark", remark); err != nil {
		return "", err
	}
	if proof != nil {
		part, err := mw.CreateFormFile("proofFile", proofName)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(part, proof); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/attendance/correction-request", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(req, employeeID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{StatusCode: resp.StatusCode, Message: readServerMessage(resp.Body)}
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil
	}
	return out.Message, nil
}

// CorrectionRequests — список запросов корректировки (HR). Тело отдаётся как есть.
func (c *Client) CorrectionRequests(ctx context.Context, hrID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/attendance/correction-requests", hrID, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path, employeeID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req, employeeID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{StatusCode: resp.StatusCode, Message: readServerMessage(resp.Body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setAuth(req *http.Request, employeeID string) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if employeeID != "" {
		req.Header.Set("X-Employee-Id", employeeID)
	}
}

// readServerMessage достаёт message/error из тела ответа; тело читается не дальше 4KB.
func readServerMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
