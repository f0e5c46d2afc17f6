package fmp4

const movieTimescale = 1000

// InitSegment builds the initialization segment for a set of tracks: ftyp
// with the fragmented brand set, then moov carrying each track's static
// metadata and the mvex fragment defaults. The movie header duration stays
// zero because fragmented files carry no global duration.
func InitSegment(tracks ...*TrackInfo) *Segment {
	children := []*Box{mvhdBox(tracks)}
	for _, t := range tracks {
		children = append(children, trakBox(t))
	}
	children = append(children, mvexBox(tracks))
	return &Segment{boxes: []*Box{
		ftypBox(),
		newBox("moov", children...),
	}}
}

func ftypBox() *Box {
	var p payload
	p.str("iso5")
	p.u32(0x200)
	p.str("iso5")
	p.str("iso6")
	p.str("mp41")
	p.str("dash")
	return &Box{Type: "ftyp", Payload: p.b}
}

func mvhdBox(tracks []*TrackInfo) *Box {
	nextID := uint32(1)
	for _, t := range tracks {
		if t.ID >= nextID {
			nextID = t.ID + 1
		}
	}

	var p payload
	p.u32(0) // creation time
	p.u32(0) // modification time
	p.u32(movieTimescale)
	p.u32(0) // duration: unknown for fragmented movies
	p.u32(0x00010000)
	p.u16(0x0100)
	p.zero(2)
	p.zero(8)
	p.matrix()
	p.zero(24)
	p.u32(nextID)
	return newFullBox("mvhd", 0, 0, p.b)
}

func trakBox(track *TrackInfo) *Box {
	children := []*Box{tkhdBox(track)}
	if len(track.EditList) > 0 {
		children = append(children, newBox("edts", elstBox(track)))
	}
	children = append(children, mdiaBox(track))
	return newBox("trak", children...)
}

func tkhdBox(track *TrackInfo) *Box {
	var p payload
	p.u32(0) // creation time
	p.u32(0) // modification time
	p.u32(track.ID)
	p.zero(4)
	p.u32(0) // duration
	p.zero(8)
	p.u16(0) // layer
	p.u16(0) // alternate group
	if track.Kind == TrackAudio {
		p.u16(0x0100)
	} else {
		p.u16(0)
	}
	p.zero(2)
	p.matrix()
	p.u32(uint32(track.Width) << 16)
	p.u32(uint32(track.Height) << 16)
	// flags: track enabled, in movie, in preview
	return newFullBox("tkhd", 0, 0x7, p.b)
}

func elstBox(track *TrackInfo) *Box {
	var p payload
	p.u32(uint32(len(track.EditList)))
	for _, e := range track.EditList {
		p.u32(uint32(e.Duration))
		p.i32(int32(e.MediaTime))
		p.u16(1) // media rate integer
		p.u16(0) // media rate fraction
	}
	return newFullBox("elst", 0, 0, p.b)
}

func mdiaBox(track *TrackInfo) *Box {
	return newBox("mdia",
		mdhdBox(track),
		hdlrBox(track),
		minfBox(track),
	)
}

func mdhdBox(track *TrackInfo) *Box {
	var p payload
	p.u32(0) // creation time
	p.u32(0) // modification time
	p.u32(track.Timescale)
	p.u32(0)      // duration
	p.u16(0x55C4) // language: und
	p.zero(2)
	return newFullBox("mdhd", 0, 0, p.b)
}

func hdlrBox(track *TrackInfo) *Box {
	var p payload
	p.zero(4)
	if track.Kind == TrackAudio {
		p.str("soun")
	} else {
		p.str("vide")
	}
	p.zero(12)
	p.str("MediaHandler")
	p.u8(0)
	return newFullBox("hdlr", 0, 0, p.b)
}

func minfBox(track *TrackInfo) *Box {
	var header *Box
	if track.Kind == TrackAudio {
		var p payload
		p.u16(0) // balance
		p.zero(2)
		header = newFullBox("smhd", 0, 0, p.b)
	} else {
		var p payload
		p.u16(0) // graphics mode
		p.zero(6)
		header = newFullBox("vmhd", 0, 1, p.b)
	}
	return newBox("minf",
		header,
		newBox("dinf", drefBox()),
		stblBox(track),
	)
}

func drefBox() *Box {
	var p payload
	p.u32(1)
	dref := newFullBox("dref", 0, 0, p.b)
	// self-contained url entry
	dref.Children = []*Box{newFullBox("url ", 0, 1, nil)}
	return dref
}

// stblBox builds the sample table with a single sample description and empty
// sample runs; all sample data lives in fragments.
func stblBox(track *TrackInfo) *Box {
	var stsz payload
	stsz.u32(0) // sample size
	stsz.u32(0) // sample count

	var empty payload
	empty.u32(0)

	return newBox("stbl",
		stsdBox(track),
		newFullBox("stts", 0, 0, empty.b),
		newFullBox("stsc", 0, 0, empty.b),
		newFullBox("stsz", 0, 0, stsz.b),
		newFullBox("stco", 0, 0, empty.b),
	)
}

func stsdBox(track *TrackInfo) *Box {
	var p payload
	p.u32(1)
	stsd := newFullBox("stsd", 0, 0, p.b)
	stsd.Children = []*Box{sampleEntryBox(track)}
	return stsd
}

func sampleEntryBox(track *TrackInfo) *Box {
	var p payload
	p.zero(6) // reserved
	p.u16(1)  // data reference index

	if track.Kind == TrackAudio {
		p.zero(8)
		p.u16(track.ChannelCount)
		p.u16(16) // sample size in bits
		p.zero(4)
		p.u32(track.SampleRate << 16)
	} else {
		p.zero(16)
		p.u16(track.Width)
		p.u16(track.Height)
		p.u32(0x00480000) // 72 dpi horizontal
		p.u32(0x00480000) // 72 dpi vertical
		p.zero(4)
		p.u16(1) // frame count
		p.fixedStr("", 32)
		p.u16(0x0018) // depth
		p.i16(-1)
	}

	entry := &Box{Type: track.SampleEntry, Payload: p.b}
	if cfg := configBoxType(track.SampleEntry); cfg != "" && len(track.CodecData) > 0 {
		if cfg == "esds" {
			entry.Children = []*Box{newFullBox(cfg, 0, 0, track.CodecData)}
		} else {
			entry.Children = []*Box{{Type: cfg, Payload: track.CodecData}}
		}
	}
	return entry
}

func mvexBox(tracks []*TrackInfo) *Box {
	children := make([]*Box, len(tracks))
	for i, t := range tracks {
		var p payload
		p.u32(t.ID)
		p.u32(1) // default sample description index
		p.u32(t.DefaultSampleDuration)
		p.u32(t.DefaultSampleSize)
		p.u32(t.DefaultSampleFlags)
		children[i] = newFullBox("trex", 0, 0, p.b)
	}
	return newBox("mvex", children...)
}
