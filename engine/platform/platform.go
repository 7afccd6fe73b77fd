// Package platform owns the glfw window. It creates the Vulkan surface and
// turns window callbacks into engine events.
package platform

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

var _ vulkan.Window = (*Platform)(nil)

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.Mark(errors.New("glfw reports no Vulkan loader"), core.ErrFeatureMissing)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetCloseCallback(closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages runs the pending window callbacks. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

func (p *Platform) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "glfwCreateWindowSurface")
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	if w < 0 || h < 0 {
		return 0, 0
	}
	return uint32(w), uint32(h)
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	core.InputProcessKey(code, action == glfw.Press)
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: uint32(width), WindowHeight: uint32(height)},
	})
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

var namedKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace: core.KEY_BACKSPACE,
	glfw.KeyTab:       core.KEY_TAB,
	glfw.KeyEnter:     core.KEY_ENTER,
	glfw.KeyEscape:    core.KEY_ESCAPE,
	glfw.KeySpace:     core.KEY_SPACE,
	glfw.KeyLeft:      core.KEY_LEFT,
	glfw.KeyUp:        core.KEY_UP,
	glfw.KeyRight:     core.KEY_RIGHT,
	glfw.KeyDown:      core.KEY_DOWN,
}

// translateKey maps a glfw key to the engine key code. Letters share their
// ASCII value; function keys are offset from F1.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA), true
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1), true
	}
	code, ok := namedKeys[key]
	return code, ok
}
