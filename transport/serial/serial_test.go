package serial

import "testing"

func TestOpenRequiresPort(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() with no port path should fail")
	}
}
