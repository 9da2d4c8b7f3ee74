package banner

import (
	"testing"
)

func TestPrint(t *testing.T) {
	// Must not panic with or without suppression.
	t.Setenv("STITCH_NO_BANNER", "")
	Print("1.0.0")

	t.Setenv("STITCH_NO_BANNER", "1")
	Print("1.0.0")
}
