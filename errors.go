package present

import "errors"

// Errors.
var (
	// ErrNoDevice is returned by Open when the provider is nil.
	ErrNoDevice = errors.New("present: no device provider")

	// ErrUnsupportedDevice is returned by Open when the provider's device
	// does not implement driver.Context.
	ErrUnsupportedDevice = errors.New("present: device does not support explicit presentation")

	// ErrAlreadyOpen is returned by Open on an open window.
	ErrAlreadyOpen = errors.New("present: window already open")
)
