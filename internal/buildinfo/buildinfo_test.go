package buildinfo

import "testing"

func TestHeader(t *testing.T) {
	old := Version
	Version = "1.2.3"

	t.Cleanup(func() { Version = old })

	if got := Header().Get("User-Agent"); got != "tilepad-vtstudio/1.2.3" {
		t.Errorf("User-Agent = %q", got)
	}
}
