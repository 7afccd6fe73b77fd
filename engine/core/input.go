package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_B         KeyCode = 0x42
	KEY_C         KeyCode = 0x43
	KEY_D         KeyCode = 0x44
	KEY_E         KeyCode = 0x45
	KEY_F         KeyCode = 0x46
	KEY_G         KeyCode = 0x47
	KEY_H         KeyCode = 0x48
	KEY_I         KeyCode = 0x49
	KEY_J         KeyCode = 0x4A
	KEY_K         KeyCode = 0x4B
	KEY_L         KeyCode = 0x4C
	KEY_M         KeyCode = 0x4D
	KEY_N         KeyCode = 0x4E
	KEY_O         KeyCode = 0x4F
	KEY_P         KeyCode = 0x50
	KEY_Q         KeyCode = 0x51
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_T         KeyCode = 0x54
	KEY_U         KeyCode = 0x55
	KEY_V         KeyCode = 0x56
	KEY_W         KeyCode = 0x57
	KEY_X         KeyCode = 0x58
	KEY_Y         KeyCode = 0x59
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F2        KeyCode = 0x71
	KEY_F3        KeyCode = 0x72
	KEY_F4        KeyCode = 0x73
	KEY_F5        KeyCode = 0x74
	KEY_F6        KeyCode = 0x75
	KEY_F7        KeyCode = 0x76
	KEY_F8        KeyCode = 0x77
	KEY_F9        KeyCode = 0x78
	KEY_F10       KeyCode = 0x79
	KEY_F11       KeyCode = 0x7A
	KEY_F12       KeyCode = 0x7B
	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input state structure that holds current and previous keyboard states
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

var inputMu sync.Mutex
var inputState = &InputState{}

// InputUpdate copies the current state into the previous one. Called once at the end of a frame.
func InputUpdate() {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
}

func InputIsKeyDown(key KeyCode) bool {
	inputMu.Lock()
	defer inputMu.Unlock()
	return inputState.KeyboardCurrent.Keys[key&0xFF]
}

func InputWasKeyDown(key KeyCode) bool {
	inputMu.Lock()
	defer inputMu.Unlock()
	return inputState.KeyboardPrevious.Keys[key&0xFF]
}

// InputProcessKey records a key transition and posts the matching event.
func InputProcessKey(key KeyCode, pressed bool) {
	inputMu.Lock()
	changed := inputState.KeyboardCurrent.Keys[key&0xFF] != pressed
	if changed {
		inputState.KeyboardCurrent.Keys[key&0xFF] = pressed
	}
	inputMu.Unlock()

	// Only handle this if the state actually changed.
	if !changed {
		return
	}
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(EventContext{
		Type: code,
		Data: &KeyEvent{KeyCode: key},
	})
}
