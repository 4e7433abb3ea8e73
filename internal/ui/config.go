package ui

// Config contains window and input related settings for the ebiten host.
type Config struct {
	Title   string // window title
	Scale   int    // integer upscaling factor
	ROMsDir string // ROM directory setting; App does not read it and has no ROM browser
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "dmgo"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
}
