// Package clipboard keeps a copy of injected text on the system clipboard so
// it can be pasted by hand if keystroke injection fails.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Available reports whether a clipboard backend (wl-copy, xclip, xsel, or
// the native API) was found.
func Available() bool {
	return !cb.Unsupported
}
