package hostinfo

import "golang.org/x/sys/unix"

func collectPlatform() Info {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return Info{}
	}
	return Info{
		Hostname: unix.ByteSliceToString(u.Nodename[:]),
		OS:       unix.ByteSliceToString(u.Sysname[:]),
		Kernel:   unix.ByteSliceToString(u.Release[:]),
		Arch:     unix.ByteSliceToString(u.Machine[:]),
	}
}
