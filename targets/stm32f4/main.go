//go:build stm32f4

package main

import (
	"device/stm32"
	"machine"
	"runtime/interrupt"
	"strconv"

	"blinkmon/core"
)

var fw *core.Firmware

func main() {
	// Cycle counter and trace port come first so bring-up can be traced
	InitCycleCounter()
	InitITM()
	core.SetDebugWriter(ITMWriteLine)
	core.SetDebugEnabled(true)

	board := core.Board{
		Timer:   InitToggleTimer(),
		LED:     InitLED(),
		Serial:  InitUSART2(),
		Cycles:  dwtCounter{},
		CPU:     cortexM{},
		Reports: core.NewTraceSink(ITMWriteLine),
	}
	fw = core.New(board)

	InitReportTimer()

	// Vectors are wired only once the firmware exists
	toggleIRQ := interrupt.New(stm32.IRQ_TIM2, handleTIM2)
	consoleIRQ := interrupt.New(stm32.IRQ_USART2, handleUSART2)
	reportIRQ := interrupt.New(stm32.IRQ_TIM5, handleTIM5)

	toggleIRQ.SetPriority(core.NVICPriority(core.PriorityToggle))
	consoleIRQ.SetPriority(core.NVICPriority(core.PriorityConsole))
	reportIRQ.SetPriority(core.NVICPriority(core.PriorityReport))

	toggleIRQ.Enable()
	consoleIRQ.Enable()
	reportIRQ.Enable()

	core.DebugPrintln("blinkmon: console budget " +
		strconv.FormatUint(uint64(core.ConsoleBudgetCycles(machine.CPUFrequency())), 10) + " cycles")
	core.DebugPrintln("blinkmon: running")
	fw.Idle()
}

func handleTIM2(interrupt.Interrupt) {
	fw.OnToggleTimer()
}

func handleUSART2(interrupt.Interrupt) {
	fw.OnSerialReceive()
}

func handleTIM5(interrupt.Interrupt) {
	// The report timer has no resource of its own; its flag is cleared here
	stm32.TIM5.SR.ClearBits(stm32.TIM_SR_UIF)
	fw.OnReportTimer()
}
