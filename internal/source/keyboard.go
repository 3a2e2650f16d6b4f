package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyEsc       = 0x1b
	keyDelete    = 0x7f
)

var arrowKeys = map[byte]Key{
	'A': KeyUp,
	'B': KeyDown,
	'C': KeyRight,
	'D': KeyLeft,
}

// Keyboard feeds button presses read from a raw-mode terminal into an
// InputSource.
type Keyboard struct {
	r  io.Reader
	in *InputSource
}

// NewKeyboard returns a keyboard feeder reading from r.
func NewKeyboard(r io.Reader, in *InputSource) *Keyboard {
	return &Keyboard{r: r, in: in}
}

// Run reads until r fails, ctx ends or the input source is closed. A
// read blocked on the terminal is not interrupted by ctx; the caller
// restores the terminal and lets the goroutine die with the process.
func (k *Keyboard) Run(ctx context.Context) error {
	buf := make([]byte, 32)
	for {
		n, err := k.r.Read(buf)
		for _, ev := range decodeKeys(buf[:n]) {
			if perr := k.in.Press(ctx, ev.Key, ev.Press); perr != nil {
				if errors.Is(perr, ErrInputClosed) || ctx.Err() != nil {
					return nil
				}
				return perr
			}
			slog.Debug("keyboard: press", "key", ev.Key.String(), "press", ev.Press.String())
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// decodeKeys maps one read's worth of raw terminal bytes to button events.
// Unmapped bytes are ignored. Esc is Back only when it ends the read. Esc
// '[' or Esc 'O' opens a sequence that runs to its final byte; arrow keys
// map to buttons and every other sequence is dropped whole. Esc followed by
// any other byte is an Alt chord and is dropped with that byte.
func decodeKeys(b []byte) []Event {
	var out []Event
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch c {
		case keyEsc:
			if i+1 == len(b) {
				out = append(out, Button(KeyBack, PressShort))
				continue
			}
			if b[i+1] != '[' && b[i+1] != 'O' {
				i++
				continue
			}
			end := seqEnd(b, i+2)
			if end < len(b) {
				if k, ok := arrowKeys[b[end]]; ok {
					out = append(out, Button(k, PressShort))
				}
			}
			i = end
		case 'q', keyCtrlC, keyBackspace, keyDelete:
			out = append(out, Button(KeyBack, PressShort))
		case '\r', '\n', ' ', 'o':
			out = append(out, Button(KeyOk, PressShort))
		case 'O':
			out = append(out, Button(KeyOk, PressLong))
		}
	}
	return out
}

// seqEnd returns the index of the final byte (0x40-0x7e) of an escape
// sequence whose parameters start at from, or len(b) if the read cut it off.
func seqEnd(b []byte, from int) int {
	for j := from; j < len(b); j++ {
		if b[j] >= 0x40 && b[j] <= 0x7e {
			return j
		}
	}
	return len(b)
}
