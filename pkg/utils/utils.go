package utils

import (
	"errors"

	"github.com/code-100-precent/LingSearch/pkg/logger"
	"go.uber.org/zap"
)

// SafeCall runs f and turns a panic into an error passed to failHandle.
// Without failHandle the panic is logged.
func SafeCall(f func() error, failHandle func(error)) error {
	defer func() {
		if err := recover(); err != nil {
			if failHandle != nil {
				eo, ok := err.(error)
				if !ok {
					es, ok := err.(string)
					if ok {
						eo = errors.New(es)
					} else {
						eo = errors.New("unknown error type")
					}
				}
				failHandle(eo)
			} else {
				logger.Error("panic", zap.Any("error", err))
			}
		}
	}()
	return f()
}
