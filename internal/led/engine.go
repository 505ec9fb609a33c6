package led

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
)

// Frame is one channel transmission as it went onto the wire. RGB is only
// valid for the duration of the observer call. Err is set when the
// transport failed.
type Frame struct {
	Seq        uint64
	Handle     channel.Handle
	Pin        string
	Brightness uint8
	RGB        []byte
	Err        error
}

// Stats counts transmissions since the engine was created.
type Stats struct {
	Frames uint64
	Errors uint64
}

// Engine scales channel buffers and hands them to a Transport. It never
// retries; a failed frame is counted, logged and replaced by the next one.
type Engine struct {
	reg       *channel.Registry
	tx        Transport
	balance   ColorBalance
	scratch   []byte
	observers []func(Frame)
	frames    atomic.Uint64
	errors    atomic.Uint64
}

func NewEngine(reg *channel.Registry, tx Transport, balance ColorBalance) *Engine {
	return &Engine{reg: reg, tx: tx, balance: balance}
}

// Observe registers fn to be called after every channel transmission,
// failed ones included.
func (e *Engine) Observe(fn func(Frame)) {
	e.observers = append(e.observers, fn)
}

// Stats is safe to call from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{Frames: e.frames.Load(), Errors: e.errors.Load()}
}

// SendChannel transmits the buffer of h. Absent channels are skipped.
func (e *Engine) SendChannel(h channel.Handle) error {
	ch, ok := e.reg.Lookup(h)
	if !ok {
		return nil
	}
	return e.send(ch)
}

// SendAll transmits every active channel in ascending handle order, one
// after the other.
func (e *Engine) SendAll() error {
	var errs []error
	for _, h := range e.reg.Active() {
		ch, ok := e.reg.Lookup(h)
		if !ok {
			continue
		}
		if err := e.send(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) send(ch *channel.Channel) error {
	e.scratch = e.balance.Scale(e.scratch, ch.Pixels(), ch.Brightness())
	seq := e.frames.Add(1)
	err := e.tx.Transmit(ch, e.scratch)
	if err != nil {
		e.errors.Add(1)
		log.Debug().Err(err).Uint8("handle", uint8(ch.Handle())).Str("pin", ch.PinName()).Msg("transmit failed")
		err = fmt.Errorf("led: channel %d: %w", ch.Handle(), err)
	}
	f := Frame{
		Seq:        seq,
		Handle:     ch.Handle(),
		Pin:        ch.PinName(),
		Brightness: ch.Brightness(),
		RGB:        e.scratch,
		Err:        err,
	}
	for _, fn := range e.observers {
		fn(f)
	}
	return err
}

func (e *Engine) Close() error {
	return e.tx.Close()
}
