//go:build !unix

package repolock

import "os"

// Cross-process locking is unix only. Other platforms rely on the in-process lock.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
