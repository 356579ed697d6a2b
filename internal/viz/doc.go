// Package viz provides a terminal monitor for a running fit.
//
// [Monitor] is a Bubble Tea model that drives a [fit.Runner] on its worker
// goroutine and edits the shared [fit.Session] from the UI goroutine, so the
// fit keeps going while parameters are changed.
//
// # Key Bindings
//
//	Space     - Start/stop the fit
//	Tab/S-Tab - Select parameter
//	Up/Down   - Raise/lower the selected value by 5%
//	A         - Add an electron
//	D         - Remove the selected radical
//	E         - Score the current radicals
//	R         - Restore the starting radicals
//	T         - Cycle color themes
//	?         - Show help overlay
package viz
