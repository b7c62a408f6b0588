//go:build !darwin

package hotkey

import "errors"

func registerSystem(Binding) (registration, error) {
	return nil, errors.New("global hotkeys are only supported on macOS")
}
