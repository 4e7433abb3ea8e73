package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // log CPU instructions
	LimitFPS bool // set by cmd/dmgo for interactive runs; Machine does not read it and does no throttling of its own
}
