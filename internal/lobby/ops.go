package lobby

import (
	"context"
	"time"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
)

// call enqueues one message and waits for its reply. An enqueued message is
// applied even if ctx ends while waiting.
func call[R any](ctx context.Context, l *Lobby, build func(reply chan R) Msg) (R, error) {
	var zero R
	reply := make(chan R, 1)
	if err := l.send(ctx, build(reply)); err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.done:
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, ErrLobbyClosed
		}
	}
}

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrLobbyClosed
	default:
	}

	select {
	case l.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLobbyClosed
	}
}

func (l *Lobby) Join(ctx context.Context, displayName string) (JoinResult, error) {
	r, err := call(ctx, l, func(reply chan JoinReply) Msg {
		return Join{DisplayName: displayName, Reply: reply}
	})
	if err != nil {
		return JoinResult{}, err
	}
	return r.Result, r.Err
}

func (l *Lobby) SetRoleOverride(ctx context.Context, count int) (OverrideResult, error) {
	r, err := call(ctx, l, func(reply chan OverrideReply) Msg {
		return SetRoleOverride{Count: count, Reply: reply}
	})
	if err != nil {
		return OverrideResult{}, err
	}
	return r.Result, r.Err
}

func (l *Lobby) StartGame(ctx context.Context) (map[string]engine.Role, error) {
	r, err := call(ctx, l, func(reply chan StartReply) Msg {
		return Start{Reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return r.Roles, r.Err
}

// Subscribe registers outbox under id. The outbox must be buffered: the
// snapshot is its first value, and a full outbox gets the subscriber dropped.
// The lobby closes the outbox when the subscriber is removed.
func (l *Lobby) Subscribe(ctx context.Context, id string, outbox chan Event) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, Subscribe{SubscriberID: id, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		// The queued Subscribe still runs; retract it so the outbox is not
		// left registered with nobody draining it.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.send(rctx, Unsubscribe{SubscriberID: id, Outbox: outbox})
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrLobbyClosed
		}
	}
}

func (l *Lobby) Unsubscribe(ctx context.Context, id string) error {
	_, err := call(ctx, l, func(reply chan struct{}) Msg {
		return Unsubscribe{SubscriberID: id, Reply: reply}
	})
	return err
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	return call(ctx, l, func(reply chan View) Msg {
		return GetState{Reply: reply}
	})
}

// Shutdown stops the lobby goroutine and closes every subscriber outbox.
func (l *Lobby) Shutdown() {
	l.cancel()
	l.Start() // an unstarted lobby still needs its loop to close done
	<-l.done
}
