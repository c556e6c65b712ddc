package midi

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const headerChunkSize = 14 // "MThd" + length + format + tracks + division

// Parse reads a Standard MIDI File from the byte buffer.
//
// Only metric division (ticks per quarter note) is supported; SMPTE
// division fails with ErrUnsupportedDivision. A truncated final track is
// recovered: parsing stops at the buffer boundary and the duration is
// computed from what was read.
func Parse(data []byte) (*Document, error) {
	if len(data) < headerChunkSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header chunk", ErrMalformedHeader, len(data))
	}
	if string(data[0:4]) != "MThd" {
		return nil, fmt.Errorf("%w: missing MThd tag", ErrMalformedHeader)
	}

	headerLen := int(binary.BigEndian.Uint32(data[4:8]))
	if headerLen < 6 || 8+headerLen > len(data) {
		return nil, fmt.Errorf("%w: header chunk length %d", ErrMalformedHeader, headerLen)
	}

	doc := &Document{
		Format:     int(binary.BigEndian.Uint16(data[8:10])),
		TrackCount: int(binary.BigEndian.Uint16(data[10:12])),
	}

	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 != 0 {
		return nil, fmt.Errorf("%w: SMPTE division 0x%04x", ErrUnsupportedDivision, division)
	}
	if division == 0 {
		return nil, fmt.Errorf("%w: zero ticks per quarter note", ErrUnsupportedDivision)
	}
	doc.TicksPerQuarter = int(division)
	doc.Tempo.TicksPerQuarter = int(division)

	offset := 8 + headerLen
	for trackIndex := 0; trackIndex < doc.TrackCount; trackIndex++ {
		if offset+8 > len(data) {
			// The header promised more tracks than the buffer holds.
			if trackIndex > 0 {
				doc.Truncated = true
				break
			}
			return nil, fmt.Errorf("%w: no track chunk after header", ErrTruncatedTrack)
		}

		tag := string(data[offset : offset+4])
		chunkLen := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))

		if tag != "MTrk" {
			// Alien chunks are skipped by their declared length when that
			// is possible; otherwise the position is unrecoverable.
			if chunkLen < 0 || offset+8+chunkLen > len(data) {
				return nil, fmt.Errorf("%w: unexpected chunk %q at offset %d", ErrTruncatedTrack, tag, offset)
			}
			offset += 8 + chunkLen
			trackIndex--
			continue
		}

		trackEnd := offset + 8 + chunkLen
		soft := false
		if chunkLen < 0 || trackEnd > len(data) {
			if trackIndex != doc.TrackCount-1 {
				return nil, fmt.Errorf("%w: track %d declares %d bytes past end of file", ErrTruncatedTrack, trackIndex, chunkLen)
			}
			trackEnd = len(data)
			soft = true
			doc.Truncated = true
		}

		endTick, err := parseTrack(doc, data[offset+8:trackEnd], trackIndex, soft)
		if err != nil {
			return nil, err
		}
		if endTick > doc.EndTick {
			doc.EndTick = endTick
		}

		offset = trackEnd
	}

	doc.Tempo.normalize()
	sortEvents(doc.Events)

	doc.Duration = doc.Tempo.TimeAt(doc.EndTick)
	if doc.Duration == 0 {
		doc.Duration = minDuration
	}

	return doc, nil
}

// parseTrack walks one track chunk, appending retained events to the
// document and recording tempo changes. It returns the absolute tick of
// the last event read.
//
// soft marks a track already known to be cut short: running out of bytes
// mid-event then simply ends the track instead of failing.
func parseTrack(doc *Document, track []byte, trackIndex int, soft bool) (int, error) {
	pos := 0
	currentTick := 0
	runningStatus := byte(0)

	for pos < len(track) {
		delta, n, err := readVarLen(track[pos:])
		if err != nil {
			if soft {
				break
			}
			return currentTick, fmt.Errorf("track %d at offset %d: %w", trackIndex, pos, err)
		}
		pos += n
		currentTick += delta

		if pos >= len(track) {
			break
		}

		status := track[pos]
		if status < 0x80 {
			// Running status: reuse the previous channel message status.
			if runningStatus == 0 {
				if soft {
					break
				}
				return currentTick, fmt.Errorf("%w: track %d has data byte 0x%02x with no running status", ErrTruncatedTrack, trackIndex, status)
			}
			status = runningStatus
		} else {
			pos++
			if status < 0xF0 {
				runningStatus = status
			}
		}

		switch {
		case status == 0xFF:
			runningStatus = 0
			if pos >= len(track) {
				break
			}
			metaType := track[pos]
			pos++
			length, n, err := readVarLen(track[pos:])
			if err != nil || pos+n+length > len(track) {
				if soft {
					return currentTick, nil
				}
				if err == nil {
					err = fmt.Errorf("%w: meta event 0x%02x overruns track %d", ErrTruncatedTrack, metaType, trackIndex)
				}
				return currentTick, err
			}
			pos += n
			body := track[pos : pos+length]
			pos += length

			switch metaType {
			case 0x51: // set tempo
				if length == 3 {
					micros := int(body[0])<<16 | int(body[1])<<8 | int(body[2])
					doc.Tempo.Events = append(doc.Tempo.Events, TempoEvent{Tick: currentTick, MicrosPerQuarter: micros})
					doc.Events = append(doc.Events, Event{Tick: currentTick, Track: trackIndex, Type: MetaTempo, Value: micros})
				}
			case 0x58: // time signature
				if length >= 2 {
					doc.Events = append(doc.Events, Event{Tick: currentTick, Track: trackIndex, Type: MetaTimeSignature, Data1: body[0], Data2: body[1]})
				}
			case 0x59: // key signature
				if length >= 2 {
					doc.Events = append(doc.Events, Event{Tick: currentTick, Track: trackIndex, Type: MetaKeySignature, Data1: body[0], Data2: body[1]})
				}
			case 0x2F: // end of track
				doc.Events = append(doc.Events, Event{Tick: currentTick, Track: trackIndex, Type: MetaEndOfTrack})
				return currentTick, nil
			}
			// Unknown meta types are skipped by their declared length.

		case status == 0xF0 || status == 0xF7:
			// System exclusive: skipped using its declared size.
			runningStatus = 0
			length, n, err := readVarLen(track[pos:])
			if err != nil || pos+n+length > len(track) {
				if soft {
					return currentTick, nil
				}
				if err == nil {
					err = fmt.Errorf("%w: sysex overruns track %d", ErrTruncatedTrack, trackIndex)
				}
				return currentTick, err
			}
			pos += n + length

		default:
			channel := status & 0x0F
			kind := status & 0xF0

			dataLen := 2
			if kind == 0xC0 || kind == 0xD0 {
				dataLen = 1
			}
			if pos+dataLen > len(track) {
				if soft {
					return currentTick, nil
				}
				return currentTick, fmt.Errorf("%w: channel event 0x%02x overruns track %d", ErrTruncatedTrack, status, trackIndex)
			}

			d1 := track[pos]
			var d2 byte
			if dataLen == 2 {
				d2 = track[pos+1]
			}
			pos += dataLen

			ev := Event{Tick: currentTick, Track: trackIndex, Channel: channel, Data1: d1, Data2: d2}
			switch kind {
			case 0x80:
				ev.Type = NoteOff
			case 0x90:
				// A note-on with velocity zero is a note-off in disguise.
				if d2 == 0 {
					ev.Type = NoteOff
				} else {
					ev.Type = NoteOn
				}
			case 0xA0:
				ev.Type = PolyphonicPressure
			case 0xB0:
				ev.Type = ControlChange
			case 0xC0:
				ev.Type = ProgramChange
			case 0xD0:
				ev.Type = ChannelPressure
			case 0xE0:
				ev.Type = PitchBend
				ev.Value = int(d1) | int(d2)<<7
			default:
				// System common messages carry no retained payload.
				continue
			}
			doc.Events = append(doc.Events, ev)
		}
	}

	return currentTick, nil
}

// sortEvents orders the merged event list by absolute tick. The sort is
// stable and events are appended track by track, so equal ticks keep the
// track index as the tie break.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})
}

// readVarLen decodes a variable-length quantity (7-bit continuation
// encoding). Quantities longer than four bytes are invalid.
func readVarLen(data []byte) (value, n int, err error) {
	for i := 0; i < len(data); i++ {
		if i == 4 {
			return 0, 0, fmt.Errorf("%w: variable-length quantity exceeds four bytes", ErrTruncatedTrack)
		}
		b := data[i]
		value = value<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unterminated variable-length quantity", ErrTruncatedTrack)
}
