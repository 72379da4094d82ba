package depbuild

import "fmt"

// DepLog narrates dependency-resolution decisions (skipped dependencies,
// cache hits) into the caller's build log without depbuild needing to
// depend on the phase package's BuildLog type directly.
type DepLog struct {
	Write func(string)
}

func (l *DepLog) Logf(format string, args ...any) {
	if l == nil || l.Write == nil {
		return
	}
	l.Write(fmt.Sprintf(format, args...))
}
