// Package console implements kernel.Console over the host terminal, the
// boundary spec.md draws around the keyboard/serial driver: a non-blocking
// byte read and a raw string write, nothing else of the terminal is
// modeled. Grounded on containerd/console's raw-mode handling, the same
// library runsc's cli package reaches for when it needs a real tty.
package console

import (
	"bufio"
	"io"
	"os"

	"github.com/containerd/console"
)

// Host is a kernel.Console backed by the process's own stdio, put into raw
// mode so individual keystrokes are visible to ReadByte without waiting for
// a newline.
type Host struct {
	out io.Writer
	in  *bufio.Reader
	c   console.Console
	buf chan byte
}

// NewHost puts stdin into raw mode (if it is a tty; falls back to
// line-buffered reads otherwise) and starts a background pump feeding
// ReadByte's non-blocking channel.
func NewHost() (*Host, error) {
	h := &Host{out: os.Stdout, buf: make(chan byte, 256)}

	if c, err := console.ConsoleFromFile(os.Stdin); err == nil {
		if err := c.SetRaw(); err == nil {
			h.c = c
			h.in = bufio.NewReader(c)
		}
	}
	if h.in == nil {
		h.in = bufio.NewReader(os.Stdin)
	}

	go h.pump()
	return h, nil
}

func (h *Host) pump() {
	for {
		b, err := h.in.ReadByte()
		if err != nil {
			close(h.buf)
			return
		}
		h.buf <- b
	}
}

// WriteString writes s verbatim to the console, matching sys_cputs's
// byte-for-byte passthrough.
func (h *Host) WriteString(s string) {
	io.WriteString(h.out, s)
}

// ReadByte returns the next buffered keystroke without blocking, matching
// sys_cgetc's "0 if nothing is waiting" contract.
func (h *Host) ReadByte() (byte, bool) {
	select {
	case b, ok := <-h.buf:
		return b, ok
	default:
		return 0, false
	}
}

// Close restores the terminal to cooked mode.
func (h *Host) Close() error {
	if h.c != nil {
		return h.c.Reset()
	}
	return nil
}
