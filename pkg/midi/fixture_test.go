package midi

import (
	"bytes"
	"encoding/binary"
)

// Test fixture builders. Files are assembled by hand so malformed inputs
// can be produced as easily as well-formed ones.

// writeVarLen writes a variable-length quantity in MIDI encoding.
func writeVarLen(buf *bytes.Buffer, value int) {
	if value < 0 {
		value = 0
	}

	var encoded []byte
	encoded = append(encoded, byte(value&0x7F))
	value >>= 7
	for value > 0 {
		encoded = append(encoded, byte(value&0x7F)|0x80)
		value >>= 7
	}

	for i := len(encoded) - 1; i >= 0; i-- {
		buf.WriteByte(encoded[i])
	}
}

// trackBuilder accumulates raw track events with delta times.
type trackBuilder struct {
	data bytes.Buffer
}

func (tb *trackBuilder) event(delta int, raw ...byte) *trackBuilder {
	writeVarLen(&tb.data, delta)
	tb.data.Write(raw)
	return tb
}

func (tb *trackBuilder) tempo(delta, microsPerQuarter int) *trackBuilder {
	return tb.event(delta, 0xFF, 0x51, 0x03,
		byte(microsPerQuarter>>16), byte(microsPerQuarter>>8), byte(microsPerQuarter))
}

func (tb *trackBuilder) noteOn(delta int, note, velocity byte) *trackBuilder {
	return tb.event(delta, 0x90, note, velocity)
}

func (tb *trackBuilder) noteOff(delta int, note byte) *trackBuilder {
	return tb.event(delta, 0x80, note, 0x00)
}

func (tb *trackBuilder) endOfTrack(delta int) *trackBuilder {
	return tb.event(delta, 0xFF, 0x2F, 0x00)
}

// chunk returns the complete MTrk chunk with its length header.
func (tb *trackBuilder) chunk() []byte {
	var buf bytes.Buffer
	buf.WriteString("MTrk")
	binary.Write(&buf, binary.BigEndian, uint32(tb.data.Len()))
	buf.Write(tb.data.Bytes())
	return buf.Bytes()
}

// buildFile assembles a complete MIDI file from finished track chunks.
func buildFile(format, ticksPerQuarter int, trackChunks ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("MThd")
	binary.Write(&buf, binary.BigEndian, uint32(6))
	binary.Write(&buf, binary.BigEndian, uint16(format))
	binary.Write(&buf, binary.BigEndian, uint16(len(trackChunks)))
	binary.Write(&buf, binary.BigEndian, uint16(ticksPerQuarter))
	for _, chunk := range trackChunks {
		buf.Write(chunk)
	}
	return buf.Bytes()
}

// buildSimpleFile builds a format-0 file with one tempo event and one note
// whose note-off lands at endTick.
func buildSimpleFile(ticksPerQuarter, microsPerQuarter, endTick int) []byte {
	tb := &trackBuilder{}
	tb.tempo(0, microsPerQuarter)
	tb.noteOn(0, 60, 100)
	tb.noteOff(endTick, 60)
	tb.endOfTrack(0)
	return buildFile(0, ticksPerQuarter, tb.chunk())
}
