package middleware

import "context"

type contextKey string

const EmployeeIDKey contextKey = "employee_id"

// GetEmployeeID возвращает employee_id из контекста (устанавливается IdentityValidate или DevIdentity).
func GetEmployeeID(ctx context.Context) string {
	v, _ := ctx.Value(EmployeeIDKey).(string)
	return v
}
