//go:build !linux

package dvd

import "errors"

func openTransport(path string) (Transport, error) {
	return nil, errors.New("no generic packet transport on this platform")
}
