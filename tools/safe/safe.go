package safe

import (
	"chatwire/logger"
)

// Go starts a goroutine that recovers from panic so a single
// misbehaving handler cannot take the process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
