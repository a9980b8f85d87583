package render

import (
	"io"
	"os"
	"os/exec"

	"golang.org/x/term"
)

// PagerWriter returns w unchanged when stdout isn't a terminal or pagerCmd
// is empty (e.g. output is piped or redirected); otherwise it spawns
// pagerCmd (its stdin becomes the returned writer) and returns a writer
// plus a close func the caller must call after the last write to wait
// for the pager to exit.
func PagerWriter(w io.Writer, pagerCmd string) (io.Writer, func() error) {
	f, ok := w.(*os.File)
	if !ok || pagerCmd == "" || !term.IsTerminal(int(f.Fd())) {
		return w, func() error { return nil }
	}

	cmd := exec.Command("sh", "-c", pagerCmd)
	cmd.Stdout = f
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return w, func() error { return nil }
	}
	if err := cmd.Start(); err != nil {
		return w, func() error { return nil }
	}
	return stdin, func() error {
		stdin.Close()
		return cmd.Wait()
	}
}
