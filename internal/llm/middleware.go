package llm

import (
	"context"
	"log"
	"time"

	"appforge/internal/chat"
)

// Middleware decorates an Engine to inject cross-cutting concerns
// (rate limiting, logging) without changing the Engine contract.
type Middleware func(chat.Engine) chat.Engine

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner chat.Engine, mws ...Middleware) chat.Engine {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit throttles turn-level engine calls. Note this bounds local call
// rate only; the provider's own quota errors still surface as
// chat.ErrRateLimited through the engine.
func RateLimit(rps float64, burst int) Middleware {
	return func(next chat.Engine) chat.Engine {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next chat.Engine
	rl   *rpsLimiter
}

func (e *rateLimited) Chat(ctx context.Context, req chat.EngineRequest) (string, error) {
	if err := e.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return e.next.Chat(ctx, req)
}

// Logging records one line per engine call with duration and outcome.
func Logging() Middleware {
	return func(next chat.Engine) chat.Engine {
		return &logged{next: next}
	}
}

type logged struct {
	next chat.Engine
}

func (e *logged) Chat(ctx context.Context, req chat.EngineRequest) (string, error) {
	start := time.Now()
	out, err := e.next.Chat(ctx, req)
	if err != nil {
		log.Printf("llm: chat trace=%s messages=%d tools=%d err=%v (%s)",
			req.Trace, len(req.Messages), len(req.Tools), err, time.Since(start).Round(time.Millisecond))
		return out, err
	}
	log.Printf("llm: chat trace=%s messages=%d tools=%d ok %d bytes (%s)",
		req.Trace, len(req.Messages), len(req.Tools), len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}
