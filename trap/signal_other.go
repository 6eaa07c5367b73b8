//go:build !unix

package trap

import "strings"

func canonicalName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func lookupSignal(name string) (canonical string, num int, ok bool) {
	return "", 0, false
}

func lookupSignalByNumber(n int) (canonical string, ok bool) {
	return "", false
}

func notify(num int, fire func()) (stop func()) {
	return func() {}
}
