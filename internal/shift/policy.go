// Package shift задаёт политику длительности рабочей смены.
// Чистая функция от календарного дня: две фиксированные длительности,
// укороченная суббота и полная смена в будни. Воскресенье считается
// как будний день — сервер всё равно не создаст запись в выходной.
package shift

import "time"

const (
	// DurationMonFri — будни: 8 часов 30 минут.
	DurationMonFri = 30600 * time.Second
	// DurationSat — суббота: 7 часов.
	DurationSat = 25200 * time.Second
)

// DurationFor возвращает длительность смены для дня, на который приходится t.
// Используется только день недели; детерминированно, без побочных эффектов.
func DurationFor(t time.Time) time.Duration {
	if t.Weekday() == time.Saturday {
		return DurationSat
	}
	return DurationMonFri
}

// Label возвращает подпись смены для отображения в клиенте.
func Label(t time.Time) string {
	if t.Weekday() == time.Saturday {
		return "7-Hour Shift"
	}
	return "8-Hour 30-Minute Shift"
}
