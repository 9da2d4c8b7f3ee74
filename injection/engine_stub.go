//go:build !windows
// +build !windows

package injection

// Remote-thread injection is a Win32 technique. Other platforms get
// no System implementation; Inject reports the platform as
// unsupported unless a test substitutes its own via SetSystem.
func platformSystem() System {
	return nil
}
