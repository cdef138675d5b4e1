package config

import "errors"

var (
	// ErrConfigNotFound is returned when no config file is found
	// at the specified path.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigVersionTooNew is returned when a config file has a version
	// newer than what this binary supports.
	ErrConfigVersionTooNew = errors.New("config version too new")

	// ErrUnknownRole is returned when a config's role is not one of
	// source, relay, or sink.
	ErrUnknownRole = errors.New("unknown role")

	// ErrMissingID is returned when a relay config omits its PeerID.
	ErrMissingID = errors.New("relay config requires an id")
)
