// Package viz provides the terminal live view for the spring engine.
//
// The view is a Bubble Tea model driving a two-axis spring.MultiSpring:
//
//   - [Model]: the live view; the dot chases a target the user moves
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - Theme selection with 3 built-in color schemes
//
// Frames are requested with tea.Tick only while a spring is moving, so an
// idle view costs nothing.
//
// # Key Bindings
//
//	Arrows/WASD - Move the target
//	C           - Center the target
//	Space       - Kick the dot
//	X           - Halt in place
//	P           - Cycle presets
//	Tab, +/-    - Select and tune tension or friction
//	T           - Cycle color themes
//	?           - Show help
//	Q/Esc       - Quit
package viz
