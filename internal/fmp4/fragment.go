package fmp4

import (
	"os"
)

// tfhd flags: default-base-is-moof plus fragment-wide sample defaults.
const tfhdFlags = 0x020000 | 0x000008 | 0x000010 | 0x000020

// trun flags: data-offset plus per-sample duration and size. First-sample
// flags and composition offsets are added per run when the track needs them.
const trunFlags = 0x000001 | 0x000100 | 0x000200

// FragmentTrack pairs one track with its samples for a single fragment.
type FragmentTrack struct {
	Info    *TrackInfo
	Samples []Sample
}

// MediaSegment builds a single-track media segment. See MediaSegmentTracks.
func MediaSegment(track *TrackInfo, sequence uint32, samples []Sample) *Segment {
	return MediaSegmentTracks(sequence, []FragmentTrack{{Info: track, Samples: samples}})
}

// MediaSegmentTracks builds one media segment: a moof carrying the 1-based
// sequence number and one traf per track, followed by a single mdat holding
// every track's samples back to back in track order. Each track run's
// data-offset is patched after the moof is fully sized; offsets are absolute
// and cannot be known earlier.
func MediaSegmentTracks(sequence uint32, tracks []FragmentTrack) *Segment {
	children := []*Box{mfhdBox(sequence)}
	truns := make([]*Box, len(tracks))
	for i, ft := range tracks {
		truns[i] = trunBox(ft.Info, ft.Samples)
		children = append(children, newBox("traf",
			tfhdBox(ft.Info),
			tfdtBox(ft.Info),
			truns[i],
		))
	}
	moof := newBox("moof", children...)

	offset := int32(moof.Size()) + 8
	for i, ft := range tracks {
		patchDataOffset(truns[i], offset)
		offset += int32(sampleBytes(ft.Samples))
	}

	return &Segment{boxes: []*Box{moof, mdatBox(tracks)}}
}

// RemuxSegmentFile rewraps an encoder-produced progressive MP4 segment as a
// fragment: the file's sample tables are demuxed and every elementary sample
// re-emitted under a moof/mdat pair. The returned track infos carry the
// decoder configuration the matching init segment needs.
func RemuxSegmentFile(path string, sequence uint32) (*Segment, []*TrackInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	demuxed, err := Demux(data)
	if err != nil {
		return nil, nil, err
	}

	fragments := make([]FragmentTrack, len(demuxed))
	infos := make([]*TrackInfo, len(demuxed))
	for i := range demuxed {
		fragments[i] = FragmentTrack{Info: &demuxed[i].Info, Samples: demuxed[i].Samples}
		infos[i] = &demuxed[i].Info
	}
	return MediaSegmentTracks(sequence, fragments), infos, nil
}

func mfhdBox(sequence uint32) *Box {
	var p payload
	p.u32(sequence)
	return newFullBox("mfhd", 0, 0, p.b)
}

func tfhdBox(track *TrackInfo) *Box {
	var p payload
	p.u32(track.ID)
	p.u32(track.DefaultSampleDuration)
	p.u32(track.DefaultSampleSize)
	p.u32(track.DefaultSampleFlags)
	return newFullBox("tfhd", 0, tfhdFlags, p.b)
}

func tfdtBox(track *TrackInfo) *Box {
	var p payload
	p.u64(track.baseDecodeTime())
	return newFullBox("tfdt", 1, 0, p.b)
}

func trunBox(track *TrackInfo, samples []Sample) *Box {
	flags := uint32(trunFlags)
	if track.FirstSampleFlags != 0 {
		flags |= 0x000004
	}
	var version byte
	withOffsets := false
	for _, s := range samples {
		if s.CompositionOffset != 0 {
			withOffsets = true
			if s.CompositionOffset < 0 {
				version = 1 // negative offsets need the signed layout
			}
		}
	}
	if withOffsets {
		flags |= 0x000800
	}

	var p payload
	p.u32(uint32(len(samples)))
	p.i32(0) // data offset, patched once the moof is sized
	if track.FirstSampleFlags != 0 {
		p.u32(track.FirstSampleFlags)
	}
	for _, s := range samples {
		p.u32(s.Duration)
		p.u32(uint32(len(s.Data)))
		if withOffsets {
			p.i32(s.CompositionOffset)
		}
	}
	return newFullBox("trun", version, flags, p.b)
}

// patchDataOffset rewrites the data-offset field sitting right after the
// sample count in the trun payload.
func patchDataOffset(trun *Box, offset int32) {
	v := uint32(offset)
	trun.Payload[4] = byte(v >> 24)
	trun.Payload[5] = byte(v >> 16)
	trun.Payload[6] = byte(v >> 8)
	trun.Payload[7] = byte(v)
}

func sampleBytes(samples []Sample) int {
	n := 0
	for _, s := range samples {
		n += len(s.Data)
	}
	return n
}

func mdatBox(tracks []FragmentTrack) *Box {
	size := 0
	for _, ft := range tracks {
		size += sampleBytes(ft.Samples)
	}
	data := make([]byte, 0, size)
	for _, ft := range tracks {
		for _, s := range ft.Samples {
			data = append(data, s.Data...)
		}
	}
	return &Box{Type: "mdat", Payload: data}
}
