//go:build !linux

package paste

import (
	"runtime"

	"github.com/micmonay/keybd_event"
)

func Init() error { return nil }

func sendPasteKeys() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true) // Cmd+V
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}
