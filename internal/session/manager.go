package session

import (
	"context"
	"sync"

	"github.com/attendance/internal/logger"
)

// Manager держит по контроллеру на сотрудника. Контроллер создаётся лениво
// при первом обращении и живёт до остановки агента; Deactivate гасит только
// отсчёт, не убирая контроллер из карты.
type Manager struct {
	deps Deps

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:        deps,
		controllers: make(map[string]*Controller),
	}
}

// SetListener подключает получателя живых событий. Вызывается один раз на
// старте, до обслуживания запросов (hub создаётся после менеджера).
func (m *Manager) SetListener(l Listener) {
	m.deps.Listener = l
}

// Controller возвращает контроллер сотрудника, создавая его при необходимости.
func (m *Manager) Controller(employeeID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[employeeID]
	if !ok {
		c = NewController(employeeID, m.deps)
		m.controllers[employeeID] = c
	}
	return c
}

// Activate — вход сотрудника на экран посещаемости: примирение кэша с
// HR-сервисом и, при открытой смене, запуск отсчёта.
func (m *Manager) Activate(ctx context.Context, employeeID string) (*Controller, error) {
	c := m.Controller(employeeID)
	if err := c.Reconcile(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate останавливает отсчёт сотрудника, если контроллер существует.
func (m *Manager) Deactivate(employeeID string) {
	m.mu.Lock()
	c, ok := m.controllers[employeeID]
	m.mu.Unlock()
	if ok {
		c.Deactivate()
	}
}

// Shutdown гасит все отсчёты и дожидается выхода их горутин.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	list := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		list = append(list, c)
	}
	m.mu.Unlock()
	for _, c := range list {
		c.Deactivate()
		c.driver.Wait()
	}
	logger.Info("session manager: все отсчёты остановлены")
}
