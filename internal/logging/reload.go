package logging

import (
	"os"

	"golang.org/x/sys/unix"
)

// WatchFlagsFile loads path once, then watches it for writes via inotify
// and reloads SetFlags on every change until stop is called. A missing
// file is treated as "nothing enabled" rather than an error, since the
// flags file is optional operational configuration.
func (l *Logger) WatchFlagsFile(path string) (stop func(), err error) {
	l.reloadFile(path)

	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wd, err := unix.InotifyAddWatch(fd, path, unix.IN_MODIFY|unix.IN_CLOSE_WRITE|unix.IN_MOVE_SELF|unix.IN_DELETE_SELF)
	if err != nil {
		unix.Close(fd)
		if err == unix.ENOENT {
			return func() {}, nil
		}
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := unix.Read(fd, buf)
			if err != nil || n <= 0 {
				return
			}
			select {
			case <-done:
				return
			default:
			}
			l.reloadFile(path)
		}
	}()

	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		close(done)
		unix.InotifyRmWatch(fd, uint32(wd))
		unix.Close(fd)
	}
	return stop, nil
}

func (l *Logger) reloadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		l.SetFlags("")
		return
	}
	l.SetFlags(string(data))
}
