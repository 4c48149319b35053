//go:build stm32f4

package main

import (
	"device/arm"
	"device/stm32"
	"machine"

	"blinkmon/core"
)

// timerClock returns the clock feeding TIM2..TIM5. APB1 timers run at twice
// the bus clock whenever the APB1 prescaler divides.
func timerClock() uint32 {
	hclk := machine.CPUFrequency()
	ppre1 := (stm32.RCC.CFGR.Get() & stm32.RCC_CFGR_PPRE1_Msk) >> stm32.RCC_CFGR_PPRE1_Pos
	if ppre1 < 4 {
		return hclk
	}
	apb1 := hclk >> (ppre1 - 3)
	return apb1 * 2
}

// apb1Clock returns the bus clock of USART2
func apb1Clock() uint32 {
	hclk := machine.CPUFrequency()
	ppre1 := (stm32.RCC.CFGR.Get() & stm32.RCC_CFGR_PPRE1_Msk) >> stm32.RCC_CFGR_PPRE1_Pos
	if ppre1 < 4 {
		return hclk
	}
	return hclk >> (ppre1 - 3)
}

// togglePrescaler divides the timer clock down to core.ToggleTickHz.
// At the 16 MHz reset clock this is 64.
func togglePrescaler() uint32 {
	return timerClock() / core.ToggleTickHz
}

// hwTimer is a general purpose timer in up-counting auto-reload mode
type hwTimer struct {
	dev *stm32.TIM_Type
}

// InitToggleTimer starts TIM2 with the default one second reload
func InitToggleTimer() *hwTimer {
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_TIM2EN)
	t := &hwTimer{dev: stm32.TIM2}
	t.start(core.DefaultToggleReload)
	t.EnableInterrupt()
	return t
}

// InitReportTimer starts TIM5 with a one second period
func InitReportTimer() {
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_TIM5EN)
	t := &hwTimer{dev: stm32.TIM5}
	t.start(core.ToggleTickHz)
	t.EnableInterrupt()
}

func (t *hwTimer) start(reload uint32) {
	t.dev.CR1.ClearBits(stm32.TIM_CR1_CEN)
	// Only overflows raise UIF, not the UG used to reload the prescaler
	t.dev.CR1.SetBits(stm32.TIM_CR1_URS)
	t.dev.PSC.Set(togglePrescaler() - 1)
	t.SetReload(reload)
	t.dev.CR1.SetBits(stm32.TIM_CR1_CEN)
}

// Acknowledge clears the update interrupt flag
func (t *hwTimer) Acknowledge() {
	t.dev.SR.ClearBits(stm32.TIM_SR_UIF)
}

// EnableInterrupt sets UIE. A pending UIF fires right away.
func (t *hwTimer) EnableInterrupt() {
	t.dev.DIER.SetBits(stm32.TIM_DIER_UIE)
}

// DisableInterrupt clears UIE
func (t *hwTimer) DisableInterrupt() {
	t.dev.DIER.ClearBits(stm32.TIM_DIER_UIE)
}

// InterruptEnabled reports UIE
func (t *hwTimer) InterruptEnabled() bool {
	return t.dev.DIER.HasBits(stm32.TIM_DIER_UIE)
}

// SetReload programs ARR and restarts the count from zero
func (t *hwTimer) SetReload(ticks uint32) {
	t.dev.ARR.Set(ticks - 1)
	t.dev.EGR.SetBits(stm32.TIM_EGR_UG)
}

// Reload returns the period in ticks
func (t *hwTimer) Reload() uint32 {
	return t.dev.ARR.Get() + 1
}

// ledPin is the user LED on PA5
type ledPin struct {
	pin machine.Pin
}

// InitLED configures PA5 as a push-pull output
func InitLED() *ledPin {
	p := &ledPin{pin: machine.PA5}
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return p
}

// Set drives the pin
func (p *ledPin) Set(high bool) {
	p.pin.Set(high)
}

// Get reads back the output data register
func (p *ledPin) Get() bool {
	return p.pin.Get()
}

// usart is USART2 on PA2 (TX) and PA3 (RX), 8N1, receive interrupt only.
// machine.UART2 is not used: it installs its own USART2 handler.
type usart struct {
	dev *stm32.USART_Type
}

// InitUSART2 configures USART2 at core.SerialBaud
func InitUSART2() *usart {
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_USART2EN)

	machine.PA2.ConfigureAltFunc(machine.PinConfig{Mode: machine.PinModeUARTTX}, 7)
	machine.PA3.ConfigureAltFunc(machine.PinConfig{Mode: machine.PinModeUARTRX}, 7)

	u := &usart{dev: stm32.USART2}
	u.dev.BRR.Set((apb1Clock() + core.SerialBaud/2) / core.SerialBaud)
	u.dev.CR1.Set(stm32.USART_CR1_UE | stm32.USART_CR1_TE | stm32.USART_CR1_RE | stm32.USART_CR1_RXNEIE)
	return u
}

// Receive reads DR, which also clears RXNE
func (u *usart) Receive() byte {
	return byte(u.dev.DR.Get())
}

// Transmit writes one byte and waits for transmission complete
func (u *usart) Transmit(b byte) {
	for !u.dev.SR.HasBits(stm32.USART_SR_TXE) {
	}
	u.dev.DR.Set(uint32(b))
	for !u.dev.SR.HasBits(stm32.USART_SR_TC) {
	}
}

// cortexM is the processor core
type cortexM struct{}

func (cortexM) DisableInterrupts() {
	arm.Asm("cpsid i")
}

func (cortexM) EnableInterrupts() {
	arm.Asm("cpsie i")
}

func (cortexM) WaitForInterrupt() {
	arm.Asm("wfi")
}
