//go:build !unix

package contentstore

import "os"

// Advisory locks are unix-only; other platforms rely on the in-process mutex.

func lockShared(*os.File) error    { return nil }
func lockExclusive(*os.File) error { return nil }
func unlock(*os.File) error        { return nil }
