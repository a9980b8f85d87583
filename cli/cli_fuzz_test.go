package cli

import (
	"testing"
	"time"
)

func FuzzResolveTime(f *testing.F) {
	f.Add("2024-06-01")
	f.Add("2024-06-01 13:45")
	f.Add("-1h")
	f.Add("-7d")
	f.Add("-1M")
	f.Add("-1y")
	f.Add("yesterday")
	f.Add("1 hour ago")
	f.Add("last month")
	f.Add("monday")
	f.Add("")
	f.Add("not-a-time")
	f.Add("9999-99-99")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.Fuzz(func(t *testing.T, s string) {
		// Should never panic, regardless of input.
		ResolveTime(s, now)
	})
}

func FuzzParseFieldFilter(f *testing.F) {
	f.Add("status=500")
	f.Add("msg~=timeout")
	f.Add("?user.id!=0")
	f.Add("level in trace,debug")
	f.Add("x not in a,b,c")
	f.Add("")
	f.Add("no-operator-here")
	f.Add("name~~=[invalid(regex")

	f.Fuzz(func(t *testing.T, s string) {
		parseFieldFilter(s)
	})
}
