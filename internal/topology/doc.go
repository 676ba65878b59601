// Package topology describes the hardware hierarchy that core groups are cut
// from. A Provider reports, for a requested Level, the cpu set of every unit at
// that level together with the cpu sets of the unit's immediate children, and
// the cpu set of every physical package so callers can restrict construction
// to an allow-list of packages.
//
// Sysfs is the Provider used on Linux. It reads /sys/devices/system/cpu and
// /sys/devices/system/node under a configurable root, which keeps it testable
// against a synthetic tree.
package topology
