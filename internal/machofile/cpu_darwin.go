//go:build darwin

package machofile

import "golang.org/x/sys/unix"

// currentCPUType asks the kernel directly via sysctl, mirroring the
// fallback path spec.md §4.4 describes for when no NXFindBestFatArch-
// style OS helper is linked in: "otherwise by matching against
// hw.cputype/hw.cpusubtype".
func currentCPUType() uint32 {
	v, err := unix.SysctlUint32("hw.cputype")
	if err != nil {
		return currentCPUTypeFallback()
	}
	return v
}
