package replica

import (
	"context"
	"errors"
	"fmt"
)

// ErrLogClosed is returned by Run when the log subscription ends while ctx is
// still live; the host reconnects by calling Run again.
var ErrLogClosed = errors.New("replica: log subscription closed")

// Run subscribes to the log from Serial() and to the preview channel, then
// applies remote deliveries and local input one at a time until ctx is done
// or the log subscription closes. Step errors are logged, not returned. The
// committed state is flushed before Run returns.
func (r *Replica) Run(ctx context.Context, input <-chan Event) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries, err := r.log.Subscribe(subCtx, r.serial)
	if err != nil {
		return fmt.Errorf("replica: subscribe from serial %d: %w", r.serial, err)
	}
	var previews <-chan []byte
	if r.preview != nil {
		if previews, err = r.preview.Subscribe(subCtx); err != nil {
			r.logger.Printf("[replica %s] preview channel unavailable: %v", r.cfg.ID, err)
			previews = nil
		}
	}
	defer func() {
		if err := r.Flush(context.WithoutCancel(ctx)); err != nil {
			r.logger.Printf("[replica %s] final save failed: %v", r.cfg.ID, err)
		}
	}()

	for {
		var ev Event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrLogClosed
			}
			ev = AuthoritativeUpdate{Delivery: d}
		case p, ok := <-previews:
			if !ok {
				previews = nil
				continue
			}
			ev = PreviewUpdate{Payload: p}
		case in, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			ev = in
		}
		if err := r.Step(ctx, ev); err != nil {
			r.logger.Printf("[replica %s] %T: %v", r.cfg.ID, ev, err)
		}
	}
}
