package handlers

import (
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	deps   *callbacktypes.Handler
	logger *zap.Logger
}

// NewHandlers создаёт новый обработчик команд; зависимости общие с callback handlers
func NewHandlers(deps *callbacktypes.Handler) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: deps.Logger,
	}
}
