// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ErrNoAbsState is returned by AbsValue on handles without absolute axis state.
var ErrNoAbsState = errors.New("absolute axis state not supported")

type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

// EVIOCGABS(abs) = _IOR('E', 0x40 + abs, struct input_absinfo)
func evioCGAbs(code uint16) uintptr {
	return ioc(iocRead, 'E', 0x40+uintptr(code), unsafe.Sizeof(absInfo{}))
}

// EVIOCSCLOCKID = _IOW('E', 0xa0, int)
func evioCSClockID() uintptr {
	return ioc(iocWrite, 'E', 0xa0, unsafe.Sizeof(int32(0)))
}

// Device is an open raw event node. Reads never block: with no data pending
// Read fails with EAGAIN, which Ring reports as an empty fill.
type Device struct {
	path  string
	fd    int
	evdev bool
}

// OpenDevice opens a raw event node read-only and non-blocking.
func OpenDevice(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &IOError{Op: "open", Err: &os.PathError{Op: "open", Path: path, Err: err}}
	}
	return &Device{path: path, fd: fd}, nil
}

// OpenEvdev opens an input event node and switches its timestamps to
// CLOCK_MONOTONIC so they compare against the session clock.
func OpenEvdev(path string) (*Device, error) {
	d, err := OpenDevice(path)
	if err != nil {
		return nil, err
	}
	d.evdev = true

	clk := int32(unix.CLOCK_MONOTONIC)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), evioCSClockID(), uintptr(unsafe.Pointer(&clk))); errno != 0 {
		log.Warnf("input: %s: EVIOCSCLOCKID failed, timestamps stay on CLOCK_REALTIME: %v", path, errno)
	}
	return d, nil
}

func (d *Device) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (d *Device) Close() error {
	return unix.Close(d.fd)
}

// Fd returns the descriptor for polling.
func (d *Device) Fd() int {
	return d.fd
}

// AbsValue returns the current absolute value of an axis (EVIOCGABS).
func (d *Device) AbsValue(code uint16) (int32, error) {
	if !d.evdev {
		return 0, ErrNoAbsState
	}
	var info absInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), evioCGAbs(code), uintptr(unsafe.Pointer(&info))); errno != 0 {
		return 0, &IOError{Op: "ioctl", Err: fmt.Errorf("%s: EVIOCGABS(%d): %w", d.path, code, errno)}
	}
	return info.Value, nil
}
