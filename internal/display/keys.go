// Package display shows the detector output in an OpenCV window and maps
// keys and trackbars to settings changes.
package display

// Command is an action bound to a key.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandScreenshot
	CommandThresholdDown
	CommandThresholdUp
	CommandMemoryDown
	CommandMemoryUp
)

const keyEsc = 27

// CommandForKey maps a key code returned by WaitKey to a command. Unbound
// keys and -1 (no key) map to CommandNone.
func CommandForKey(key int) Command {
	if key < 0 {
		return CommandNone
	}
	switch key & 0xFF {
	case 'q', 'Q', keyEsc:
		return CommandQuit
	case ' ':
		return CommandScreenshot
	case '1':
		return CommandThresholdDown
	case '2':
		return CommandThresholdUp
	case '3':
		return CommandMemoryDown
	case '4':
		return CommandMemoryUp
	}
	return CommandNone
}

// Step returns the settings change a command asks for.
func (c Command) Step() (dThreshold float64, dDepth int) {
	switch c {
	case CommandThresholdDown:
		return -1, 0
	case CommandThresholdUp:
		return 1, 0
	case CommandMemoryDown:
		return 0, -1
	case CommandMemoryUp:
		return 0, 1
	}
	return 0, 0
}

func (c Command) String() string {
	switch c {
	case CommandQuit:
		return "quit"
	case CommandScreenshot:
		return "screenshot"
	case CommandThresholdDown:
		return "threshold-down"
	case CommandThresholdUp:
		return "threshold-up"
	case CommandMemoryDown:
		return "memory-down"
	case CommandMemoryUp:
		return "memory-up"
	}
	return "none"
}
