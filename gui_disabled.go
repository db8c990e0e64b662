//go:build !gui

package main

import (
	"justspeak/audio"
	"justspeak/overlay"
)

// Stubs for non-GUI builds (never used since guiMode is false)
var guiAudioCtx audio.Context

func initGUI() {
	panic("justspeak: built without GUI support (rebuild with -tags gui)")
}

func guiRenderer() overlay.Renderer { return nil }

func guiScreenSize() (w, h int) { return 0, 0 }
