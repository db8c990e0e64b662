//go:build gui

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"justspeak/audio"
	"justspeak/gui"
	"justspeak/overlay"
)

var guiApp *gui.App

// Audio context initialized on main thread for macOS Core Audio compatibility
var guiAudioCtx audio.Context

// -gui is consumed before run() parses the rest.
var _ = flag.Bool("gui", false, "draw the overlay in a desktop window")

func initGUI() {
	guiMode = true

	var err error
	guiAudioCtx, err = audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}

	// Fyne/GLFW must own the OS thread
	runtime.LockOSThread()

	guiApp = gui.NewApp()
	if err := guiApp.Run(func() {
		run()
		guiApp.Quit()
	}); err != nil {
		guiAudioCtx.Close()
		panic(err)
	}
}

func guiRenderer() overlay.Renderer { return guiApp }

func guiScreenSize() (w, h int) { return guiApp.ScreenSize() }
