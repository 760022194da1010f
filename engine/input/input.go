package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// InputState tracks mouse and keyboard state per frame
type InputState struct {
	// Mouse
	MouseX, MouseY   int
	MouseDX, MouseDY int // delta since last frame
	prevMouseX       int
	prevMouseY       int
	LeftPressed      bool
	MiddlePressed    bool
	ScrollY          float64

	// Keyboard
	KeysPressed map[ebiten.Key]bool
}

// viewerKeys are sampled every frame
var viewerKeys = []ebiten.Key{
	ebiten.KeyW, ebiten.KeyA, ebiten.KeyS, ebiten.KeyD,
	ebiten.KeyUp, ebiten.KeyDown, ebiten.KeyLeft, ebiten.KeyRight,
	ebiten.KeyShift, ebiten.KeyF, ebiten.KeyG, ebiten.KeyH,
	ebiten.KeyEscape,
}

func NewInputState() *InputState {
	return &InputState{KeysPressed: make(map[ebiten.Key]bool)}
}

// Update should be called every frame
func (s *InputState) Update() {
	s.prevMouseX = s.MouseX
	s.prevMouseY = s.MouseY
	s.MouseX, s.MouseY = ebiten.CursorPosition()
	s.MouseDX = s.MouseX - s.prevMouseX
	s.MouseDY = s.MouseY - s.prevMouseY

	s.LeftPressed = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	s.MiddlePressed = ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)

	_, s.ScrollY = ebiten.Wheel()

	for _, k := range viewerKeys {
		s.KeysPressed[k] = ebiten.IsKeyPressed(k)
	}
}

// Held reports whether any of keys was down this frame
func (s *InputState) Held(keys ...ebiten.Key) bool {
	for _, k := range keys {
		if s.KeysPressed[k] {
			return true
		}
	}
	return false
}

// IsKeyJustPressed returns true if key was just pressed this frame
func (s *InputState) IsKeyJustPressed(key ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(key)
}
