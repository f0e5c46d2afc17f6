package fmp4

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Fragment sample flags assigned to demuxed tracks: a video run opens on a
// sync sample with the remaining frames marked dependent; audio samples are
// all sync.
const (
	videoSampleFlags     = 0x01010000
	videoSyncSampleFlags = 0x02000000
	audioSampleFlags     = 0x02000000
)

// DemuxedTrack is one elementary stream recovered from a progressive MP4:
// its static description plus every sample in decode order.
type DemuxedTrack struct {
	Info    TrackInfo
	Samples []Sample
}

// DemuxFile reads and demuxes a progressive MP4 file.
func DemuxFile(path string) ([]DemuxedTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Demux(data)
}

// Demux parses a progressive (non-fragmented) MP4 and extracts every audio
// and video track with its samples. Chunk offsets are absolute file offsets,
// so the whole file must be passed, not just the moov. Sample data aliases
// the input buffer.
func Demux(data []byte) ([]DemuxedTrack, error) {
	top, err := scanBoxes(data)
	if err != nil {
		return nil, err
	}
	var moov []byte
	for _, b := range top {
		if b.boxType == "moov" {
			moov = b.body
		}
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box")
	}

	children, err := scanBoxes(moov)
	if err != nil {
		return nil, err
	}
	var tracks []DemuxedTrack
	for _, b := range children {
		if b.boxType != "trak" {
			continue
		}
		track, err := demuxTrack(data, b.body)
		if err != nil {
			return nil, err
		}
		if track != nil {
			tracks = append(tracks, *track)
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no audio or video tracks")
	}
	return tracks, nil
}

// rawBox is a scanned box: its four-character type and body without the
// header.
type rawBox struct {
	boxType string
	body    []byte
}

// scanBoxes splits data into its sequence of boxes, handling 64-bit and
// to-end-of-file sizes.
func scanBoxes(data []byte) ([]rawBox, error) {
	var boxes []rawBox
	off := 0
	for off+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off:]))
		header := 8
		boxType := string(data[off+4 : off+8])
		switch size {
		case 0:
			size = len(data) - off
		case 1:
			if off+16 > len(data) {
				return nil, fmt.Errorf("truncated box %q", boxType)
			}
			wide := binary.BigEndian.Uint64(data[off+8:])
			if wide > uint64(len(data)-off) {
				return nil, fmt.Errorf("oversized box %q", boxType)
			}
			size = int(wide)
			header = 16
		}
		if size < header || off+size > len(data) {
			return nil, fmt.Errorf("malformed box %q", boxType)
		}
		boxes = append(boxes, rawBox{boxType: boxType, body: data[off+header : off+size]})
		off += size
	}
	return boxes, nil
}

// childBox returns the body of the first direct child of the given type, nil
// when absent or unparseable.
func childBox(body []byte, boxType string) []byte {
	boxes, err := scanBoxes(body)
	if err != nil {
		return nil
	}
	for _, b := range boxes {
		if b.boxType == boxType {
			return b.body
		}
	}
	return nil
}

// demuxTrack extracts one trak. Tracks that are neither audio nor video
// return nil without error.
func demuxTrack(file, trak []byte) (*DemuxedTrack, error) {
	tkhd := childBox(trak, "tkhd")
	mdia := childBox(trak, "mdia")
	if tkhd == nil || mdia == nil {
		return nil, fmt.Errorf("trak missing tkhd or mdia")
	}

	hdlr := childBox(mdia, "hdlr")
	if len(hdlr) < 12 {
		return nil, fmt.Errorf("trak missing hdlr")
	}
	var kind TrackKind
	switch string(hdlr[8:12]) {
	case "vide":
		kind = TrackVideo
	case "soun":
		kind = TrackAudio
	default:
		return nil, nil
	}

	info := TrackInfo{Kind: kind}
	if err := parseTkhd(tkhd, &info); err != nil {
		return nil, err
	}
	if err := parseMdhd(childBox(mdia, "mdhd"), &info); err != nil {
		return nil, err
	}
	if edts := childBox(trak, "edts"); edts != nil {
		info.EditList = parseElst(childBox(edts, "elst"))
	}

	stbl := childBox(childBox(mdia, "minf"), "stbl")
	if stbl == nil {
		return nil, fmt.Errorf("trak missing stbl")
	}
	if err := parseSampleEntry(childBox(stbl, "stsd"), &info); err != nil {
		return nil, err
	}

	samples, err := buildSamples(file,
		parseStts(childBox(stbl, "stts")),
		parseCtts(childBox(stbl, "ctts")),
		parseStsz(childBox(stbl, "stsz")),
		parseStsc(childBox(stbl, "stsc")),
		parseChunkOffsets(stbl))
	if err != nil {
		return nil, err
	}

	if len(samples) > 0 {
		info.DefaultSampleDuration = samples[0].Duration
	}
	if kind == TrackVideo {
		info.DefaultSampleFlags = videoSampleFlags
		info.FirstSampleFlags = videoSyncSampleFlags
	} else {
		info.DefaultSampleFlags = audioSampleFlags
	}
	return &DemuxedTrack{Info: info, Samples: samples}, nil
}

func parseTkhd(body []byte, info *TrackInfo) error {
	if len(body) < 16 {
		return fmt.Errorf("short tkhd")
	}
	if body[0] == 1 {
		if len(body) < 24 {
			return fmt.Errorf("short tkhd")
		}
		info.ID = binary.BigEndian.Uint32(body[20:24])
		return nil
	}
	info.ID = binary.BigEndian.Uint32(body[12:16])
	return nil
}

func parseMdhd(body []byte, info *TrackInfo) error {
	if len(body) < 16 {
		return fmt.Errorf("short mdhd")
	}
	if body[0] == 1 {
		if len(body) < 24 {
			return fmt.Errorf("short mdhd")
		}
		info.Timescale = binary.BigEndian.Uint32(body[20:24])
		return nil
	}
	info.Timescale = binary.BigEndian.Uint32(body[12:16])
	return nil
}

// parseSampleEntry reads the first sample description: entry type, geometry
// or audio parameters, and the decoder configuration record.
func parseSampleEntry(stsd []byte, info *TrackInfo) error {
	if len(stsd) < 8 {
		return fmt.Errorf("short stsd")
	}
	entries, err := scanBoxes(stsd[8:])
	if err != nil || len(entries) == 0 {
		return fmt.Errorf("empty stsd")
	}
	entry := entries[0]
	info.SampleEntry = entry.boxType

	if info.Kind == TrackVideo {
		if len(entry.body) < 78 {
			return fmt.Errorf("short visual sample entry %q", entry.boxType)
		}
		info.Width = binary.BigEndian.Uint16(entry.body[24:26])
		info.Height = binary.BigEndian.Uint16(entry.body[26:28])
		if cfg := configBoxType(entry.boxType); cfg != "" {
			info.CodecData = childBox(entry.body[78:], cfg)
		}
		return nil
	}

	if len(entry.body) < 28 {
		return fmt.Errorf("short audio sample entry %q", entry.boxType)
	}
	info.ChannelCount = binary.BigEndian.Uint16(entry.body[16:18])
	info.SampleRate = binary.BigEndian.Uint32(entry.body[24:28]) >> 16
	if esds := childBox(entry.body[28:], "esds"); len(esds) > 4 {
		// Strip the full-box version and flags; CodecData carries the bare
		// descriptor as sampleEntryBox re-emits it.
		info.CodecData = esds[4:]
	}
	return nil
}

func parseElst(body []byte) []EditEntry {
	if len(body) < 8 {
		return nil
	}
	version := body[0]
	count := int(binary.BigEndian.Uint32(body[4:8]))
	var entries []EditEntry
	off := 8
	for i := 0; i < count; i++ {
		if version == 1 {
			if off+20 > len(body) {
				break
			}
			entries = append(entries, EditEntry{
				Duration:  binary.BigEndian.Uint64(body[off:]),
				MediaTime: int64(binary.BigEndian.Uint64(body[off+8:])),
			})
			off += 20
			continue
		}
		if off+12 > len(body) {
			break
		}
		entries = append(entries, EditEntry{
			Duration:  uint64(binary.BigEndian.Uint32(body[off:])),
			MediaTime: int64(int32(binary.BigEndian.Uint32(body[off+4:]))),
		})
		off += 12
	}
	return entries
}

// parseStts expands the decode-time deltas into one duration per sample.
func parseStts(body []byte) []uint32 {
	if len(body) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(body[4:8]))
	var durations []uint32
	off := 8
	for i := 0; i < count && off+8 <= len(body); i++ {
		n := int(binary.BigEndian.Uint32(body[off:]))
		delta := binary.BigEndian.Uint32(body[off+4:])
		for j := 0; j < n; j++ {
			durations = append(durations, delta)
		}
		off += 8
	}
	return durations
}

// parseCtts expands composition offsets into one entry per sample. Version 1
// carries signed offsets; version 0 values always fit int32.
func parseCtts(body []byte) []int32 {
	if len(body) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(body[4:8]))
	var offsets []int32
	off := 8
	for i := 0; i < count && off+8 <= len(body); i++ {
		n := int(binary.BigEndian.Uint32(body[off:]))
		delta := int32(binary.BigEndian.Uint32(body[off+4:]))
		for j := 0; j < n; j++ {
			offsets = append(offsets, delta)
		}
		off += 8
	}
	return offsets
}

// parseStsz returns one size per sample, expanding the uniform-size form.
func parseStsz(body []byte) []uint32 {
	if len(body) < 12 {
		return nil
	}
	uniform := binary.BigEndian.Uint32(body[4:8])
	count := int(binary.BigEndian.Uint32(body[8:12]))
	sizes := make([]uint32, 0, count)
	if uniform != 0 {
		for i := 0; i < count; i++ {
			sizes = append(sizes, uniform)
		}
		return sizes
	}
	off := 12
	for i := 0; i < count && off+4 <= len(body); i++ {
		sizes = append(sizes, binary.BigEndian.Uint32(body[off:]))
		off += 4
	}
	return sizes
}

// chunkRun is one sample-to-chunk entry: from firstChunk on, every chunk
// holds samplesPerChunk samples until the next run begins.
type chunkRun struct {
	firstChunk      uint32
	samplesPerChunk uint32
}

func parseStsc(body []byte) []chunkRun {
	if len(body) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(body[4:8]))
	var runs []chunkRun
	off := 8
	for i := 0; i < count && off+12 <= len(body); i++ {
		runs = append(runs, chunkRun{
			firstChunk:      binary.BigEndian.Uint32(body[off:]),
			samplesPerChunk: binary.BigEndian.Uint32(body[off+4:]),
		})
		off += 12
	}
	return runs
}

func parseChunkOffsets(stbl []byte) []int {
	if stco := childBox(stbl, "stco"); len(stco) >= 8 {
		count := int(binary.BigEndian.Uint32(stco[4:8]))
		offsets := make([]int, 0, count)
		off := 8
		for i := 0; i < count && off+4 <= len(stco); i++ {
			offsets = append(offsets, int(binary.BigEndian.Uint32(stco[off:])))
			off += 4
		}
		return offsets
	}
	if co64 := childBox(stbl, "co64"); len(co64) >= 8 {
		count := int(binary.BigEndian.Uint32(co64[4:8]))
		offsets := make([]int, 0, count)
		off := 8
		for i := 0; i < count && off+8 <= len(co64); i++ {
			offsets = append(offsets, int(binary.BigEndian.Uint64(co64[off:])))
			off += 8
		}
		return offsets
	}
	return nil
}

func samplesInChunk(runs []chunkRun, chunk uint32) uint32 {
	per := uint32(1)
	for _, r := range runs {
		if r.firstChunk > chunk {
			break
		}
		per = r.samplesPerChunk
	}
	return per
}

// buildSamples walks the chunk map and slices every sample out of the file.
func buildSamples(file []byte, durations []uint32, compOffsets []int32, sizes []uint32, runs []chunkRun, chunkOffsets []int) ([]Sample, error) {
	samples := make([]Sample, 0, len(sizes))
	si := 0
	for ci := 0; ci < len(chunkOffsets) && si < len(sizes); ci++ {
		per := samplesInChunk(runs, uint32(ci+1))
		off := chunkOffsets[ci]
		for k := uint32(0); k < per && si < len(sizes); k++ {
			size := int(sizes[si])
			if off < 0 || size < 0 || off+size > len(file) {
				return nil, fmt.Errorf("sample %d outside the file", si)
			}
			s := Sample{Data: file[off : off+size]}
			switch {
			case si < len(durations):
				s.Duration = durations[si]
			case len(durations) > 0:
				s.Duration = durations[len(durations)-1]
			}
			if si < len(compOffsets) {
				s.CompositionOffset = compOffsets[si]
			}
			samples = append(samples, s)
			off += size
			si++
		}
	}
	if si < len(sizes) {
		return nil, fmt.Errorf("chunk map covers %d of %d samples", si, len(sizes))
	}
	return samples, nil
}
