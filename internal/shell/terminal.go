package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	clearScreen = "\033[H\033[2J"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// DefaultTick is the redraw interval.
const DefaultTick = 100 * time.Millisecond

var ErrNoInput = errors.New("no video file provided")

// Run puts in into raw mode when it is a terminal and drives app until the
// user quits or ctx is done. The app is closed before Run returns.
func Run(ctx context.Context, app *App, in *os.File, out io.Writer, tick time.Duration) (err error) {
	defer func() {
		if cerr := app.Close(); err == nil {
			err = cerr
		}
	}()

	tty := term.IsTerminal(int(in.Fd()))
	if tty {
		old, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(in.Fd()), old) }()
		_, _ = io.WriteString(out, hideCursor)
		defer func() { _, _ = io.WriteString(out, showCursor) }()
	}

	keys := make(chan Key, 16)
	go readKeys(in, keys)

	if tick <= 0 {
		tick = DefaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	draw := func() {
		screen := app.Render()
		if tty {
			screen = clearScreen + screen
		}
		_, _ = io.WriteString(out, screen)
	}
	draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if app.Handle(k) {
				return nil
			}
			draw()
		case <-t.C:
			app.Poll()
			if tty {
				draw()
			}
		}
	}
}

func readKeys(r io.Reader, keys chan<- Key) {
	defer close(keys)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, k := range DecodeKeys(buf[:n]) {
			keys <- k
		}
		if err != nil {
			return
		}
	}
}

// PromptPath asks for a video path on the terminal until an existing file
// is given. An empty answer aborts with ErrNoInput.
func PromptPath(in io.Reader, out io.Writer) (string, error) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Open video: ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", ErrNoInput
		}
		p := strings.TrimSpace(sc.Text())
		if p == "" {
			return "", ErrNoInput
		}
		fi, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(out, "cannot open %s: %v\n", p, err)
			continue
		}
		if fi.IsDir() {
			fmt.Fprintf(out, "%s is a directory\n", p)
			continue
		}
		return p, nil
	}
}
