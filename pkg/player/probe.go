package player

import "encoding/binary"

// prober is the optional self-check hook adapters implement. The probe
// must prove the back-end can decode its format without opening an
// audio device.
type prober interface {
	probe() error
}

func probeAdapter(a Adapter) error {
	p, ok := a.(prober)
	if !ok {
		return nil
	}
	return p.probe()
}

// probeModBytes builds a minimal 4-channel MOD: empty sample table,
// a one-entry order list and a single silent pattern.
func probeModBytes() []byte {
	buf := make([]byte, 0, 1084+1024)

	title := make([]byte, 20)
	copy(title, "probe")
	buf = append(buf, title...)

	// 31 sample headers, all empty.
	for i := 0; i < 31; i++ {
		buf = append(buf, make([]byte, 30)...)
	}

	buf = append(buf, 1, 127) // song length, restart byte
	orders := make([]byte, 128)
	buf = append(buf, orders...)
	buf = append(buf, 'M', '.', 'K', '.')

	// One pattern of 64 rows, 4 channels, 4 bytes per note.
	buf = append(buf, make([]byte, 64*4*4)...)
	return buf
}

// probeMIDIBytes builds a one-track file holding a short note.
func probeMIDIBytes() []byte {
	track := []byte{
		0x00, 0x90, 0x3C, 0x40, // note on, middle C
		0x60, 0x80, 0x3C, 0x00, // note off after 96 ticks
		0x00, 0xFF, 0x2F, 0x00, // end of track
	}

	buf := make([]byte, 0, 14+8+len(track))
	buf = append(buf, 'M', 'T', 'h', 'd')
	buf = binary.BigEndian.AppendUint32(buf, 6)
	buf = binary.BigEndian.AppendUint16(buf, 0)  // format 0
	buf = binary.BigEndian.AppendUint16(buf, 1)  // one track
	buf = binary.BigEndian.AppendUint16(buf, 96) // ticks per quarter
	buf = append(buf, 'M', 'T', 'r', 'k')
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(track)))
	buf = append(buf, track...)
	return buf
}
