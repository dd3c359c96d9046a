//go:build linux

package dvd

import "syscall"

// Vendor memory reads require root. The binary is expected to be
// installed setuid-root; privileges are raised only for the duration of
// a single command and dropped again on every exit path.

// enableRootPrivileges raises the effective uid to root.
func enableRootPrivileges() {
	if syscall.Getuid() != 0 {
		_ = syscall.Seteuid(0)
	}
}

// disableRootPrivileges drops the effective uid back to the real user.
func disableRootPrivileges() {
	uid := syscall.Getuid()
	if uid != 0 && uid != syscall.Geteuid() {
		_ = syscall.Seteuid(uid)
	}
}

// withRootPrivileges runs fn with elevated privileges, pairing the
// raise with a drop on every exit path including panics.
func withRootPrivileges(fn func() error) error {
	enableRootPrivileges()
	defer disableRootPrivileges()
	return fn()
}
