package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SpinnerFrames defines the animation frames (◐ ◓ ◑ ◒) for Bubble Tea programs.
// The dashboard embeds these so the TUI spinner matches the CLI one.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10, // 100ms per frame
}
