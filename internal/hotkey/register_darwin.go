//go:build darwin

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var darwinModifiers = map[string]hotkey.Modifier{
	"cmd":    hotkey.ModCmd,
	"ctrl":   hotkey.ModCtrl,
	"shift":  hotkey.ModShift,
	"option": hotkey.ModOption,
}

var darwinKeys = map[string]hotkey.Key{
	"Space": hotkey.KeySpace, "Return": hotkey.KeyReturn, "Escape": hotkey.KeyEscape, "Tab": hotkey.KeyTab,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD, "E": hotkey.KeyE,
	"F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH, "I": hotkey.KeyI, "J": hotkey.KeyJ,
	"K": hotkey.KeyK, "L": hotkey.KeyL, "M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO,
	"P": hotkey.KeyP, "Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX, "Y": hotkey.KeyY,
	"Z": hotkey.KeyZ,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4, "F5": hotkey.KeyF5,
	"F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8, "F9": hotkey.KeyF9, "F10": hotkey.KeyF10,
	"F11": hotkey.KeyF11, "F12": hotkey.KeyF12, "F13": hotkey.KeyF13, "F14": hotkey.KeyF14, "F15": hotkey.KeyF15,
	"F16": hotkey.KeyF16, "F17": hotkey.KeyF17, "F18": hotkey.KeyF18, "F19": hotkey.KeyF19, "F20": hotkey.KeyF20,
}

type systemRegistration struct {
	hk     *hotkey.Hotkey
	events chan struct{}
	done   chan struct{}
	once   sync.Once
}

func registerSystem(b Binding) (registration, error) {
	key, ok := darwinKeys[b.Key]
	if !ok {
		return nil, fmt.Errorf("key %s is not supported", b.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(b.Modifiers))
	for _, name := range b.Modifiers {
		mods = append(mods, darwinModifiers[name])
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, err
	}

	reg := &systemRegistration{hk: hk, events: make(chan struct{}, 1), done: make(chan struct{})}
	go reg.forward()
	return reg, nil
}

func (r *systemRegistration) forward() {
	keydown := r.hk.Keydown()
	for {
		select {
		case <-r.done:
			return
		case <-keydown:
			select {
			case r.events <- struct{}{}:
			default:
			}
		}
	}
}

func (r *systemRegistration) Events() <-chan struct{} { return r.events }

func (r *systemRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
	})
	return err
}
