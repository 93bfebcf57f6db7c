package serialport

// Termios2 mirrors the Linux kernel's struct termios2, which adds the
// ISpeed/OSpeed fields needed to express the non-standard VE.Direct bauds
// (14400, 128000, 256000) via BOTHER. Adapted from the teacher's Termios2
// (github.com/daedaluz/goserial/port_linux.go); it keeps every field of the
// kernel struct, since TCGETS2/TCSETS2 copy it whole, while makeRaw and
// setBaud touch only the flag and speed fields.
type Termios2 struct {
	Iflag  uint32
	Oflag  uint32
	Cflag  uint32
	Lflag  uint32
	Line   byte
	Cc     [19]byte
	ISpeed uint32
	OSpeed uint32
}

// CFlag is the subset of termios control-mode bits this package needs:
// character size, the standard baud table, and the BOTHER escape hatch for
// custom input/output speeds.
type CFlag = uint32

const (
	cbaud  CFlag = 0010017
	b110   CFlag = 0000003
	b300   CFlag = 0000007
	b600   CFlag = 0000010
	b1200  CFlag = 0000011
	b2400  CFlag = 0000013
	b4800  CFlag = 0000014
	b9600  CFlag = 0000015
	b19200 CFlag = 0000016
	b38400 CFlag = 0000017

	cbaudex CFlag = 0010000
	bother  CFlag = 0010000
	b57600  CFlag = 0010001
	b115200 CFlag = 0010002

	cs8    CFlag = 0000060
	csize  CFlag = 0000060
	parenb CFlag = 0000400
)

const (
	ignbrk CFlag = 0000001
	brkint CFlag = 0000002
	parmrk CFlag = 0000010
	istrip CFlag = 0000040
	inlcr  CFlag = 0000100
	igncr  CFlag = 0000200
	icrnl  CFlag = 0000400
	ixon   CFlag = 0002000

	opost CFlag = 0000001

	echo   CFlag = 0000010
	echonl CFlag = 0000100
	icanon CFlag = 0000002
	isig   CFlag = 0000001
	iexten CFlag = 0100000
)

// standardBaud maps the subset of spec.md's 14 valid bauds that have a
// fixed termios CFlag encoding. The rest (14400, 128000, 256000) are
// non-standard and are set via BOTHER + ISpeed/OSpeed instead.
var standardBaud = map[int]CFlag{
	110:    b110,
	300:    b300,
	600:    b600,
	1200:   b1200,
	2400:   b2400,
	4800:   b4800,
	9600:   b9600,
	19200:  b19200,
	38400:  b38400,
	57600:  b57600,
	115200: b115200,
}

// makeRaw clears the terminal processing bits so bytes pass through
// unmodified, the way the teacher's Termios2.MakeRaw does for interactive
// ports. VE.Direct is a 8-bit-clean text stream read one byte at a time;
// canonical/echo processing would corrupt it.
func (t *Termios2) makeRaw() {
	t.Iflag &= ^uint32(ignbrk | brkint | parmrk | istrip | inlcr | igncr | icrnl | ixon)
	t.Oflag &= ^uint32(opost)
	t.Lflag &= ^uint32(echo | echonl | icanon | isig | iexten)
	t.Cflag &= ^uint32(csize | parenb)
	t.Cflag |= cs8
}

// setBaud encodes baud into the termios control flags, using the standard
// CFlag table when possible and BOTHER + ISpeed/OSpeed otherwise.
func (t *Termios2) setBaud(baud int) {
	if cflag, ok := standardBaud[baud]; ok {
		t.Cflag &= ^cbaud
		t.Cflag &= ^cbaudex
		t.Cflag |= cflag
		return
	}
	t.Cflag &= ^cbaud
	t.Cflag |= bother
	t.ISpeed = uint32(baud)
	t.OSpeed = uint32(baud)
}
