package fmp4

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoTrack() *TrackInfo {
	return &TrackInfo{
		ID:                    1,
		Kind:                  TrackVideo,
		Timescale:             90000,
		Width:                 1920,
		Height:                1080,
		SampleEntry:           "avc1",
		CodecData:             []byte{0x01, 0x64, 0x00, 0x28, 0xff},
		DefaultSampleDuration: 3600,
		DefaultSampleFlags:    0x01010000,
	}
}

func audioTrack() *TrackInfo {
	return &TrackInfo{
		ID:           1,
		Kind:         TrackAudio,
		Timescale:    48000,
		SampleRate:   48000,
		ChannelCount: 2,
		SampleEntry:  "mp4a",
		CodecData:    []byte{0x03, 0x19, 0x00},
	}
}

// findBox walks a serialized box sequence and returns the body of the first
// box with the given type, descending into the named container path.
func findBox(t *testing.T, data []byte, path ...string) []byte {
	t.Helper()
	for len(path) > 0 {
		want := path[0]
		found := false
		for off := 0; off+8 <= len(data); {
			size := int(binary.BigEndian.Uint32(data[off:]))
			require.GreaterOrEqual(t, size, 8)
			require.LessOrEqual(t, off+size, len(data))
			if string(data[off+4:off+8]) == want {
				data = data[off+8 : off+size]
				found = true
				break
			}
			off += size
		}
		require.True(t, found, "box %q not found", want)
		path = path[1:]
	}
	return data
}

func TestBoxSerialization(t *testing.T) {
	leaf := &Box{Type: "free", Payload: []byte{1, 2, 3}}
	assert.Equal(t, 11, leaf.Size())

	full := newFullBox("mfhd", 0, 0, []byte{0, 0, 0, 7})
	assert.Equal(t, 16, full.Size())

	container := newBox("moof", full)
	assert.Equal(t, 24, container.Size())

	data := container.Bytes()
	require.Len(t, data, 24)
	assert.Equal(t, uint32(24), binary.BigEndian.Uint32(data[0:4]))
	assert.Equal(t, "moof", string(data[4:8]))
	assert.Equal(t, uint32(16), binary.BigEndian.Uint32(data[8:12]))
	assert.Equal(t, "mfhd", string(data[12:16]))
}

func TestInitSegmentLayout(t *testing.T) {
	seg := InitSegment(videoTrack())
	data := seg.Bytes()
	require.Len(t, data, seg.Size())

	// ftyp leads with the fragmented brand set.
	assert.Equal(t, "ftyp", string(data[4:8]))
	ftyp := findBox(t, data, "ftyp")
	assert.Equal(t, "iso5", string(ftyp[0:4]))
	assert.Contains(t, string(ftyp), "dash")

	// moov carries the track and the fragment defaults.
	trex := findBox(t, data, "moov", "mvex", "trex")
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(trex[4:8]))      // track id
	assert.Equal(t, uint32(3600), binary.BigEndian.Uint32(trex[12:16])) // default duration

	// sample entry geometry and decoder config. The stsd body holds the
	// version, flags, and entry count before the first sample entry.
	stsd := findBox(t, data, "moov", "trak", "mdia", "minf", "stbl", "stsd")[8:]
	entry := findBox(t, stsd, "avc1")
	assert.Equal(t, uint16(1920), binary.BigEndian.Uint16(entry[24:26]))
	assert.Equal(t, uint16(1080), binary.BigEndian.Uint16(entry[26:28]))
	// The config box follows the 78-byte visual sample entry fields.
	avcC := findBox(t, entry[78:], "avcC")
	assert.Equal(t, videoTrack().CodecData, avcC)
}

func TestInitSegmentAudio(t *testing.T) {
	seg := InitSegment(audioTrack())
	data := seg.Bytes()
	require.Len(t, data, seg.Size())

	hdlr := findBox(t, data, "moov", "trak", "mdia", "hdlr")
	assert.Equal(t, "soun", string(hdlr[8:12]))

	stsd := findBox(t, data, "moov", "trak", "mdia", "minf", "stbl", "stsd")[8:]
	mp4a := findBox(t, stsd, "mp4a")
	assert.Equal(t, uint16(2), binary.BigEndian.Uint16(mp4a[16:18]))
	// sample rate is 16.16 fixed point
	assert.Equal(t, uint32(48000)<<16, binary.BigEndian.Uint32(mp4a[24:28]))
}

func TestInitSegmentEditList(t *testing.T) {
	track := videoTrack()
	track.EditList = []EditEntry{{Duration: 0, MediaTime: 1800}}

	data := InitSegment(track).Bytes()
	elst := findBox(t, data, "moov", "trak", "edts", "elst")
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(elst[4:8]))
	assert.Equal(t, uint32(1800), binary.BigEndian.Uint32(elst[12:16]))
}

func TestMediaSegmentDataOffset(t *testing.T) {
	samples := []Sample{
		{Data: []byte("frame-one"), Duration: 3600},
		{Data: []byte("frame-two-longer"), Duration: 3600},
	}
	seg := MediaSegment(videoTrack(), 5, samples)
	data := seg.Bytes()
	require.Len(t, data, seg.Size())

	moofSize := int(binary.BigEndian.Uint32(data[0:4]))
	require.Equal(t, "moof", string(data[4:8]))

	mfhd := findBox(t, data, "moof", "mfhd")
	assert.Equal(t, uint32(5), binary.BigEndian.Uint32(mfhd[4:8]))

	// The track run's data offset points at the first mdat payload byte.
	trun := findBox(t, data, "moof", "traf", "trun")
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(trun[4:8]))
	dataOffset := int(int32(binary.BigEndian.Uint32(trun[8:12])))
	assert.Equal(t, moofSize+8, dataOffset)

	// Per-sample duration and size entries follow.
	assert.Equal(t, uint32(3600), binary.BigEndian.Uint32(trun[12:16]))
	assert.Equal(t, uint32(len(samples[0].Data)), binary.BigEndian.Uint32(trun[16:20]))

	// mdat is the concatenated sample payloads, right where trun points.
	mdat := findBox(t, data, "mdat")
	assert.Equal(t, "frame-oneframe-two-longer", string(mdat))
	assert.Equal(t, byte('f'), data[dataOffset])
}

func TestMediaSegmentBaseDecodeTime(t *testing.T) {
	track := videoTrack()
	data := MediaSegment(track, 1, []Sample{{Data: []byte{0}, Duration: 1}}).Bytes()
	tfdt := findBox(t, data, "moof", "traf", "tfdt")
	assert.Equal(t, uint64(0), binary.BigEndian.Uint64(tfdt[4:12]))

	track.EditList = []EditEntry{{Duration: 0, MediaTime: -1}, {Duration: 0, MediaTime: 7200}}
	data = MediaSegment(track, 1, []Sample{{Data: []byte{0}, Duration: 1}}).Bytes()
	tfdt = findBox(t, data, "moof", "traf", "tfdt")
	assert.Equal(t, uint64(7200), binary.BigEndian.Uint64(tfdt[4:12]))
}

func TestMediaSegmentMultiTrack(t *testing.T) {
	audio := audioTrack()
	audio.ID = 2
	tracks := []FragmentTrack{
		{Info: videoTrack(), Samples: []Sample{{Data: []byte("video-sample-data"), Duration: 3600}}},
		{Info: audio, Samples: []Sample{{Data: []byte("aac0"), Duration: 1024}, {Data: []byte("aac1"), Duration: 1024}}},
	}
	seg := MediaSegmentTracks(9, tracks)
	data := seg.Bytes()
	require.Len(t, data, seg.Size())

	top, err := scanBoxes(data)
	require.NoError(t, err)
	require.Len(t, top, 2)
	moofSize := 8 + len(top[0].body)

	children, err := scanBoxes(top[0].body)
	require.NoError(t, err)
	require.Len(t, children, 3) // mfhd plus one traf per track

	// Each traf's run points at its own slice of the shared mdat.
	trun := childBox(children[1].body, "trun")
	assert.Equal(t, uint32(moofSize+8), binary.BigEndian.Uint32(trun[8:12]))
	trun = childBox(children[2].body, "trun")
	assert.Equal(t, uint32(moofSize+8+len("video-sample-data")), binary.BigEndian.Uint32(trun[8:12]))

	tfhd := childBox(children[2].body, "tfhd")
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(tfhd[4:8]))

	assert.Equal(t, "video-sample-dataaac0aac1", string(top[1].body))
}

func TestInitSegmentMultiTrack(t *testing.T) {
	audio := audioTrack()
	audio.ID = 2
	data := InitSegment(videoTrack(), audio).Bytes()

	moov := findBox(t, data, "moov")
	children, err := scanBoxes(moov)
	require.NoError(t, err)
	require.Len(t, children, 4) // mvhd, two traks, mvex

	mvhd := children[0].body
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(mvhd[len(mvhd)-4:])) // next track id

	trexes, err := scanBoxes(children[3].body)
	require.NoError(t, err)
	require.Len(t, trexes, 2)
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(trexes[0].body[4:8]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(trexes[1].body[4:8]))
}

// progressiveTrack describes one trak of a synthetic progressive MP4.
type progressiveTrack struct {
	info    *TrackInfo
	samples []Sample
}

// buildProgressiveMP4 serializes an ftyp+moov+mdat file the way the encoder
// writes non-fragmented segments: full sample tables in the moov, all sample
// bytes concatenated in the mdat, one chunk per track with absolute offsets.
func buildProgressiveMP4(tracks ...progressiveTrack) []byte {
	ftyp := &Box{Type: "ftyp", Payload: []byte("isomiso2")}

	// The chunk offsets depend on the moov size, so the stco payloads are
	// patched once the tree is assembled; patching changes no box sizes.
	stcos := make([]*Box, len(tracks))
	traks := make([]*Box, len(tracks))
	for i, tr := range tracks {
		stcos[i], traks[i] = progressiveTrak(tr)
	}
	moov := newBox("moov", traks...)

	offset := ftyp.Size() + moov.Size() + 8
	for i, tr := range tracks {
		binary.BigEndian.PutUint32(stcos[i].Payload[4:8], uint32(offset))
		offset += sampleBytes(tr.samples)
	}

	var mdat payload
	for _, tr := range tracks {
		for _, s := range tr.samples {
			mdat.raw(s.Data)
		}
	}

	data := ftyp.Bytes()
	data = append(data, moov.Bytes()...)
	return append(data, (&Box{Type: "mdat", Payload: mdat.b}).Bytes()...)
}

func progressiveTrak(tr progressiveTrack) (*Box, *Box) {
	var stts payload
	stts.u32(uint32(len(tr.samples)))
	for _, s := range tr.samples {
		stts.u32(1)
		stts.u32(s.Duration)
	}

	var stsz payload
	stsz.u32(0)
	stsz.u32(uint32(len(tr.samples)))
	for _, s := range tr.samples {
		stsz.u32(uint32(len(s.Data)))
	}

	var stsc payload
	stsc.u32(1)
	stsc.u32(1) // first chunk
	stsc.u32(uint32(len(tr.samples)))
	stsc.u32(1) // sample description index

	var stco payload
	stco.u32(1)
	stco.u32(0) // patched by buildProgressiveMP4
	stcoBox := newFullBox("stco", 0, 0, stco.b)

	children := []*Box{
		stsdBox(tr.info),
		newFullBox("stts", 0, 0, stts.b),
		newFullBox("stsc", 0, 0, stsc.b),
		newFullBox("stsz", 0, 0, stsz.b),
		stcoBox,
	}
	withOffsets := false
	for _, s := range tr.samples {
		if s.CompositionOffset != 0 {
			withOffsets = true
		}
	}
	if withOffsets {
		var ctts payload
		ctts.u32(uint32(len(tr.samples)))
		for _, s := range tr.samples {
			ctts.u32(1)
			ctts.i32(s.CompositionOffset)
		}
		children = append(children, newFullBox("ctts", 0, 0, ctts.b))
	}

	trak := newBox("trak",
		tkhdBox(tr.info),
		newBox("mdia",
			mdhdBox(tr.info),
			hdlrBox(tr.info),
			newBox("minf", newBox("stbl", children...)),
		),
	)
	return stcoBox, trak
}

func TestDemuxVideoTrack(t *testing.T) {
	samples := []Sample{
		{Data: []byte("key-frame-bytes"), Duration: 3600, CompositionOffset: 7200},
		{Data: []byte("delta-frame"), Duration: 3600},
	}
	file := buildProgressiveMP4(progressiveTrack{info: videoTrack(), samples: samples})

	tracks, err := Demux(file)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	info := tracks[0].Info
	assert.Equal(t, TrackVideo, info.Kind)
	assert.Equal(t, uint32(1), info.ID)
	assert.Equal(t, uint32(90000), info.Timescale)
	assert.Equal(t, uint16(1920), info.Width)
	assert.Equal(t, uint16(1080), info.Height)
	assert.Equal(t, "avc1", info.SampleEntry)
	assert.Equal(t, videoTrack().CodecData, info.CodecData)
	assert.Equal(t, uint32(3600), info.DefaultSampleDuration)
	assert.Equal(t, uint32(videoSampleFlags), info.DefaultSampleFlags)
	assert.Equal(t, uint32(videoSyncSampleFlags), info.FirstSampleFlags)

	require.Len(t, tracks[0].Samples, 2)
	assert.Equal(t, []byte("key-frame-bytes"), tracks[0].Samples[0].Data)
	assert.Equal(t, int32(7200), tracks[0].Samples[0].CompositionOffset)
	assert.Equal(t, []byte("delta-frame"), tracks[0].Samples[1].Data)
	assert.Equal(t, int32(0), tracks[0].Samples[1].CompositionOffset)
}

func TestDemuxAudioTrack(t *testing.T) {
	samples := []Sample{
		{Data: []byte("aac-one"), Duration: 1024},
		{Data: []byte("aac-two"), Duration: 1024},
		{Data: []byte("aac-three"), Duration: 1024},
	}
	file := buildProgressiveMP4(progressiveTrack{info: audioTrack(), samples: samples})

	tracks, err := Demux(file)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	info := tracks[0].Info
	assert.Equal(t, TrackAudio, info.Kind)
	assert.Equal(t, uint32(48000), info.SampleRate)
	assert.Equal(t, uint16(2), info.ChannelCount)
	assert.Equal(t, "mp4a", info.SampleEntry)
	assert.Equal(t, audioTrack().CodecData, info.CodecData)
	assert.Equal(t, uint32(audioSampleFlags), info.DefaultSampleFlags)

	require.Len(t, tracks[0].Samples, 3)
	assert.Equal(t, []byte("aac-three"), tracks[0].Samples[2].Data)
	assert.Equal(t, uint32(1024), tracks[0].Samples[2].Duration)
}

func TestDemuxRejectsMalformedInput(t *testing.T) {
	_, err := Demux([]byte("not-an-mp4-file-at-all"))
	assert.Error(t, err)

	// Well-formed boxes but no movie metadata.
	_, err = Demux((&Box{Type: "free", Payload: []byte("x")}).Bytes())
	assert.Error(t, err)
}

func TestRemuxSegmentFile(t *testing.T) {
	samples := []Sample{
		{Data: []byte("key-frame-bytes"), Duration: 3600},
		{Data: []byte("delta-frame"), Duration: 3600},
	}
	file := buildProgressiveMP4(progressiveTrack{info: videoTrack(), samples: samples})

	dir := t.TempDir()
	path := filepath.Join(dir, "stream00003.mp4")
	require.NoError(t, os.WriteFile(path, file, 0o644))

	seg, infos, err := RemuxSegmentFile(path, 4)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, videoTrack().CodecData, infos[0].CodecData)

	data := seg.Bytes()
	moofSize := int(binary.BigEndian.Uint32(data[0:4]))
	require.Equal(t, "moof", string(data[4:8]))

	mfhd := findBox(t, data, "moof", "mfhd")
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(mfhd[4:8]))

	// The run opens on a sync sample, so the first-sample-flags field sits
	// between the data offset and the per-sample entries.
	trun := findBox(t, data, "moof", "traf", "trun")
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(trun[4:8]))
	assert.Equal(t, uint32(moofSize+8), binary.BigEndian.Uint32(trun[8:12]))
	assert.Equal(t, uint32(videoSyncSampleFlags), binary.BigEndian.Uint32(trun[12:16]))
	assert.Equal(t, uint32(3600), binary.BigEndian.Uint32(trun[16:20]))
	assert.Equal(t, uint32(len(samples[0].Data)), binary.BigEndian.Uint32(trun[20:24]))

	assert.Equal(t, "key-frame-bytesdelta-frame", string(findBox(t, data, "mdat")))

	// The recovered track feeds a decodable init segment.
	initData := InitSegment(infos...).Bytes()
	stsd := findBox(t, initData, "moov", "trak", "mdia", "minf", "stbl", "stsd")[8:]
	entry := findBox(t, stsd, "avc1")
	assert.Equal(t, videoTrack().CodecData, findBox(t, entry[78:], "avcC"))

	_, _, err = RemuxSegmentFile(filepath.Join(dir, "missing.mp4"), 1)
	assert.Error(t, err)
}
