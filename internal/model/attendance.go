package model

import "time"

// Status — статус посещаемости сотрудника на текущий день.
// Закрытый набор значений; переходы описаны в session.Controller.
type Status string

const (
	StatusNotCheckedIn Status = "NOT_CHECKED_IN"
	StatusCheckedIn    Status = "CHECKED_IN"
	StatusCheckedOut   Status = "CHECKED_OUT"
)

// Location — геопозиция, снятая устройством при отметке прихода/ухода.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Valid — координаты присутствуют и в допустимых пределах.
func (l Location) Valid() bool {
	if l.Latitude == 0 && l.Longitude == 0 {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// SessionRecord — персистентное состояние незавершённой смены.
// Времена в миллисекундах Unix; ShiftEndAtMS всегда равен
// CheckInAtMS + DurationSeconds*1000 (инвариант, проверяется при загрузке).
type SessionRecord struct {
	CheckInAtMS     int64
	ShiftEndAtMS    int64
	DurationSeconds int64
}

// Consistent — внутренняя согласованность записи (времена заданы, арифметика сходится).
func (r SessionRecord) Consistent() bool {
	if r.CheckInAtMS <= 0 || r.ShiftEndAtMS <= 0 || r.DurationSeconds <= 0 {
		return false
	}
	return r.ShiftEndAtMS == r.CheckInAtMS+r.DurationSeconds*1000
}

// DayRecord — запись сводки посещаемости из HR-сервиса за один день.
// OutTime == nil означает открытую смену (приход без ухода).
type DayRecord struct {
	Date    string     `json:"date"`
	InTime  *time.Time `json:"inTime"`
	OutTime *time.Time `json:"outTime"`
}

// CorrectionData — данные для запроса корректировки (шаг 1): токен обязателен для отправки.
type CorrectionData struct {
	Token  string     `json:"token"`
	Date   string     `json:"date"`
	Record *DayRecord `json:"record,omitempty"`
}

// AttendanceEvent — строка локального журнала отметок (вспомогательный аудит в Postgres).
type AttendanceEvent struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Kind       string    `json:"kind"` // "check_in" | "check_out"
	At         time.Time `json:"at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	EventCheckIn  = "check_in"
	EventCheckOut = "check_out"
)
