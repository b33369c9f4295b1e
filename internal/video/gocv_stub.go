//go:build !gocv

package video

import "fmt"

// newGoCVOpener is used when building without -tags gocv
func newGoCVOpener() (Opener, error) {
	return nil, fmt.Errorf("decoder backend %q unavailable: build with -tags gocv", BackendGoCV)
}
