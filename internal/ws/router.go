package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chatrelay/internal/services/chat"

	"github.com/go-playground/validator/v10"
)

var errUnknownEvent = fmt.Errorf("%w: unknown_event", chat.ErrValidation)

// internal (untyped) handler signature.
type rawHandler func(c *ConnContext, body json.RawMessage) error

// ConnContext identifies the connection a frame arrived on.
type ConnContext struct {
	ConnectionID string
}

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a strongly‑typed handler. Bodies that fail to
// decode or fail their struct tags never reach h and come back wrapped in
// chat.ErrValidation.
func Register[Req any](
	r *Router,
	event string,
	h func(c *ConnContext, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("%w: %v", chat.ErrValidation, err)
			}
		}
		if err := r.validate.Struct(req); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return fmt.Errorf("%w: %v", chat.ErrValidation, err)
			}
		}
		return h(c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(c *ConnContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return errUnknownEvent
	}
	return h(c, env.Body)
}
