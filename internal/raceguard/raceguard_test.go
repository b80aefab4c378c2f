package raceguard

import "testing"

func TestEnterLeaveSameGoroutine(t *testing.T) {
	var g Guard
	g.Enter("test")
	g.Leave()
	g.Enter("test")
	g.Leave()
}
