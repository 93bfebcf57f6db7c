package serialport

import (
	ioctl "github.com/daedaluz/goioctl"
	"unsafe"
)

// ioctl request numbers for the termios2 get/set calls, the only ioctls
// this transport needs (trimmed from the teacher's much larger table in
// github.com/daedaluz/goserial/ioctl_linux.go, which also covers breaks,
// RS485, modem lines, and pseudoterminals this package never touches).
var (
	tcgets2 = ioctl.IOR('T', 0x2A, unsafe.Sizeof(Termios2{}))
	tcsets2 = ioctl.IOW('T', 0x2B, unsafe.Sizeof(Termios2{}))
)
