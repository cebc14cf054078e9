package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler запускает фоновые задачи, перехватывает panic
// и позволяет дождаться их завершения при остановке сервиса.
type RecoveryHandler struct {
	logger Logger
	wg     sync.WaitGroup
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recoverPanic(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recoverPanic(name)
		fn(ctx)
	}()
}

// Wait блокируется, пока не завершатся все запущенные задачи.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

func (rh *RecoveryHandler) recoverPanic(name string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("goroutine %s: panic: %v\nStack trace:\n%s", name, r, debug.Stack())
	}
}

// DefaultRecoveryHandler пишет в стандартный логгер logrus до вызова SetLogger.
var DefaultRecoveryHandler = NewRecoveryHandler(logrus.StandardLogger())

// SetLogger подменяет логгер глобального обработчика. Вызывается до запуска задач.
func SetLogger(logger Logger) {
	DefaultRecoveryHandler.logger = logger
}

func SafeGo(name string, fn func()) {
	DefaultRecoveryHandler.SafeGo(name, fn)
}

func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, name, fn)
}

// Wait ждёт задачи глобального обработчика.
func Wait() {
	DefaultRecoveryHandler.Wait()
}
