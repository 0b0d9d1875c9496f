//go:build !windows
// +build !windows

package builtins

import (
	"os"
	"syscall"
	"unsafe"
)

func getTerminalSize() (rows, cols int) {
	type winsize struct {
		Row    uint16
		Col    uint16
		Xpixel uint16
		Ypixel uint16
	}

	ws := &winsize{}
	_, _, err := syscall.Syscall(
		syscall.SYS_IOCTL,
		os.Stdout.Fd(),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(ws)),
	)
	if err != 0 || ws.Col == 0 {
		return 24, 80 // fallback
	}
	return int(ws.Row), int(ws.Col)
}
