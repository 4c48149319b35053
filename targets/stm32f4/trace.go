//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"
)

// Debug and trace block memory map
const (
	demcrAddr    = 0xE000EDFC
	dwtCtrlAddr  = 0xE0001000
	dwtCyccnt    = 0xE0001004
	itmStim0Addr = 0xE0000000
	itmTERAddr   = 0xE0000E00
	itmTCRAddr   = 0xE0000E80
	itmLARAddr   = 0xE0000FB0

	demcrTRCENA     = 1 << 24
	dwtCYCCNTENA    = 1 << 0
	itmTCRITMENA    = 1 << 0
	itmLARUnlockKey = 0xC5ACCE55
)

var (
	demcr   = (*volatile.Register32)(unsafe.Pointer(uintptr(demcrAddr)))
	dwtCtrl = (*volatile.Register32)(unsafe.Pointer(uintptr(dwtCtrlAddr)))
	cyccnt  = (*volatile.Register32)(unsafe.Pointer(uintptr(dwtCyccnt)))

	itmStim0 = (*volatile.Register32)(unsafe.Pointer(uintptr(itmStim0Addr)))
	itmStim8 = (*volatile.Register8)(unsafe.Pointer(uintptr(itmStim0Addr)))
	itmTER   = (*volatile.Register32)(unsafe.Pointer(uintptr(itmTERAddr)))
	itmTCR   = (*volatile.Register32)(unsafe.Pointer(uintptr(itmTCRAddr)))
	itmLAR   = (*volatile.Register32)(unsafe.Pointer(uintptr(itmLARAddr)))
)

// InitCycleCounter enables the trace block and starts CYCCNT from zero
func InitCycleCounter() {
	demcr.SetBits(demcrTRCENA)
	cyccnt.Set(0)
	dwtCtrl.SetBits(dwtCYCCNTENA)
}

// dwtCounter reads CYCCNT. It wraps every 2^32 cycles.
type dwtCounter struct{}

func (dwtCounter) Cycles() uint32 {
	return cyccnt.Get()
}

// InitITM enables stimulus port 0. A debugger normally does this; doing it
// here keeps trace output working when the probe only sets up SWO.
func InitITM() {
	itmLAR.Set(itmLARUnlockKey)
	itmTCR.SetBits(itmTCRITMENA)
	itmTER.SetBits(1)
}

// itmEnabled reports whether anything is listening on port 0
func itmEnabled() bool {
	return itmTCR.HasBits(itmTCRITMENA) && itmTER.HasBits(1)
}

// ITMWriteByte writes one byte to stimulus port 0
func ITMWriteByte(b byte) {
	// Port reads 1 when its FIFO can take a write
	for itmStim0.Get() == 0 {
	}
	itmStim8.Set(b)
}

// ITMWriteLine writes a line followed by a newline to stimulus port 0
func ITMWriteLine(line []byte) {
	if !itmEnabled() {
		return
	}
	for _, b := range line {
		ITMWriteByte(b)
	}
	ITMWriteByte('\n')
}
