// internal/status/encode.go
package status

// Encode converts a Snapshot into a full axis status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerAxis)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotAxisState] = s.AxisState
	regs[SlotStatusWordLow] = uint16(s.StatusWord)
	regs[SlotStatusWordHigh] = uint16(s.StatusWord >> 16)

	copy(regs[SlotAxisNameStart:SlotAxisNameEnd+1], EncodeName(s.Name))

	return regs
}

// EncodeName packs up to AxisNameMaxChars ASCII characters, two per
// register, high byte first. Non-ASCII bytes become '?'. Unused space is zero.
func EncodeName(name string) []uint16 {
	regs := make([]uint16, SlotAxisNameSlots)

	b := []byte(name)
	if len(b) > AxisNameMaxChars {
		b = b[:AxisNameMaxChars]
	}
	for i, c := range b {
		if c > 0x7F {
			c = '?'
		}
		if i%2 == 0 {
			regs[i/2] |= uint16(c) << 8
		} else {
			regs[i/2] |= uint16(c)
		}
	}
	return regs
}
