package cmd

import "fmt"

// mustFlag reads a flag registered in init(). A lookup error means the flag
// name or type is wrong in code, so it panics.
func mustFlag[T any](name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
