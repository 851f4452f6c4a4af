package midi

// Parser splits a raw MIDI byte stream into complete messages.
// The zero value is ready to use.
type Parser struct {
	status  byte
	buf     [3]byte
	rt      [1]byte
	n       int
	need    int
	inSysex bool
}

// dataLen returns the number of data bytes following status.
func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	}
	switch status {
	case 0xF1, 0xF3:
		return 1
	case 0xF2:
		return 2
	}
	return 0
}

// Feed consumes one byte. When the byte completes a message, the message
// is returned with ok set; the slice is only valid until the next call.
func (p *Parser) Feed(b byte) (msg []byte, ok bool) {
	switch {
	case b >= 0xF8:
		// real-time bytes may appear anywhere and leave running status alone
		p.rt[0] = b
		return p.rt[:], true
	case b == 0xF0:
		p.inSysex = true
		p.status = 0
		return nil, false
	case b == 0xF7:
		// EOX is system common: it cancels running status even outside SysEx
		p.inSysex = false
		p.status = 0
		return nil, false
	case b >= 0x80:
		p.inSysex = false
		p.status = b
		p.buf[0] = b
		p.n = 1
		p.need = dataLen(b)
		if p.need == 0 {
			p.status = 0
			return p.buf[:1], true
		}
		return nil, false
	}

	if p.inSysex || p.status == 0 {
		return nil, false
	}
	p.buf[p.n] = b
	p.n++
	if p.n <= p.need {
		return nil, false
	}
	out := p.buf[:p.n]
	p.n = 1
	if p.status >= 0xF0 {
		// system common messages cancel running status
		p.status = 0
	}
	return out, true
}
