package esjit

// callSysV is implemented in native_call_amd64.s.
func callSysV(addr uintptr, args *uint64, nargs int) uint64
