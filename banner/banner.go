package banner

import (
	"fmt"
	"os"
)

const art = `
        _   _ _       _
    ___| |_(_) |_ ___| |__
   / __| __| | __/ __| '_ \
   \__ \ |_| | || (__| | | |
   |___/\__|_|\__\___|_| |_|
`

// Print writes the startup banner. Suppressed when STITCH_NO_BANNER
// is set, so scripted runs keep clean output.
func Print(version string) {
	if os.Getenv("STITCH_NO_BANNER") != "" {
		return
	}
	fmt.Print(art + "\n")
	fmt.Printf("   stitch v%s - remote-thread DLL injector\n", version)
	fmt.Println("   AUTHORIZED USE ONLY - SECURITY RESEARCH ONLY")
	fmt.Println()
}
