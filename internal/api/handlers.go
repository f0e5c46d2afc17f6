package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/capability"
	"github.com/tvoe/mediaserver/internal/config"
	"github.com/tvoe/mediaserver/internal/delivery"
	"github.com/tvoe/mediaserver/internal/domain"
	"github.com/tvoe/mediaserver/internal/ffmpeg"
	"github.com/tvoe/mediaserver/internal/fmp4"
	"github.com/tvoe/mediaserver/internal/metrics"
	"github.com/tvoe/mediaserver/internal/profile"
	"github.com/tvoe/mediaserver/internal/store"
	"github.com/tvoe/mediaserver/internal/stream"
)

// Handler holds API dependencies
type Handler struct {
	config     *config.Config
	db         *store.DB
	mediaRepo  *store.MediaRepository
	jobRepo    *store.JobRepository
	statsRepo  *store.UserStatsRepository
	supervisor *stream.Supervisor
	tracker    *stream.SegmentTracker
	builder    *ffmpeg.CommandBuilder
	prober     *ffmpeg.Prober
	resolver   *profile.Resolver
	files      *delivery.FileServer
	relay      *delivery.Relay
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	sessions map[uuid.UUID]*streamSession
}

// streamSession is the in-memory state of one running playback session.
type streamSession struct {
	job     *domain.Job
	element *domain.MediaElement
	profile *domain.TranscodeProfile

	// Adaptive only.
	segmentExt string
	fragmented bool
	workspace  *stream.Workspace

	// tracks is the demuxed track layout of the session's encoder output,
	// cached after the first rewrapped segment. Guarded by Handler.mu.
	tracks []*fmp4.TrackInfo
}

// NewHandler creates a new handler
func NewHandler(
	cfg *config.Config,
	db *store.DB,
	mediaRepo *store.MediaRepository,
	jobRepo *store.JobRepository,
	statsRepo *store.UserStatsRepository,
	supervisor *stream.Supervisor,
	tracker *stream.SegmentTracker,
	builder *ffmpeg.CommandBuilder,
	prober *ffmpeg.Prober,
	resolver *profile.Resolver,
	files *delivery.FileServer,
	relay *delivery.Relay,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		config:     cfg,
		db:         db,
		mediaRepo:  mediaRepo,
		jobRepo:    jobRepo,
		statsRepo:  statsRepo,
		supervisor: supervisor,
		tracker:    tracker,
		builder:    builder,
		prober:     prober,
		resolver:   resolver,
		files:      files,
		relay:      relay,
		logger:     logger,
		metrics:    m,
	}
}

// CreateStreamRequest represents the request to start a playback session
type CreateStreamRequest struct {
	MediaID int64  `json:"mediaId"`
	UserID  int64  `json:"userId"`
	Type    string `json:"type"`
	Client  string `json:"client"`

	// Codecs is the client's declared decoder list, video entries optionally
	// carrying a profile suffix ("h264/high").
	Codecs []string `json:"codecs"`

	Quality        string  `json:"quality,omitempty"`
	AudioTrack     *int    `json:"audioTrack,omitempty"`
	SubtitleTrack  *int    `json:"subtitleTrack,omitempty"`
	Multichannel   bool    `json:"multichannel,omitempty"`
	StartOffsetSec float64 `json:"startOffsetSec,omitempty"`
}

// CreateStreamResponse represents the response after starting a session
type CreateStreamResponse struct {
	JobID      uuid.UUID      `json:"jobId"`
	Type       domain.JobType `json:"type"`
	VideoCodec string         `json:"videoCodec,omitempty"`
	AudioCodec string         `json:"audioCodec,omitempty"`
	StreamURL  string         `json:"streamUrl,omitempty"`
	PlaylistURL string        `json:"playlistUrl,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// CreateStream negotiates a profile and starts a playback session
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	var req CreateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobType, ok := parseJobType(req.Type)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown stream type")
		return
	}

	ctx := r.Context()
	element, err := h.mediaRepo.GetByID(ctx, req.MediaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "media not found")
			return
		}
		h.logger.Error("failed to load media element", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load media element")
		return
	}

	client := domain.ParseClient(req.Client)
	table := h.tableForType(jobType).ForClient(client)
	clientSet := parseClientCodecs(req.Codecs)

	var hardware domain.CodecSet
	if h.config.Hardware.VendorID != "" {
		if hw := capability.ResolveHardware(h.config.Hardware.VendorID, h.config.Hardware.DeviceID); len(hw) > 0 {
			hardware = hw
		}
	}

	videoCodec, audioCodec := capability.Negotiate(element, clientSet, table, hardware)

	needsVideo := jobType != domain.JobTypeAudio && element.Video != nil
	if needsVideo && videoCodec == domain.CodecUnsupported {
		h.metrics.IncrementNegotiationFailures("video")
		h.writeError(w, http.StatusUnprocessableEntity, "no eligible video codec")
		return
	}
	if jobType == domain.JobTypeAudio && audioCodec == domain.CodecUnsupported {
		h.metrics.IncrementNegotiationFailures("audio")
		h.writeError(w, http.StatusUnprocessableEntity, "no eligible audio codec")
		return
	}

	hints := profile.Hints{
		Client:             client,
		ClientCodecs:       clientSet,
		VideoCodec:         videoCodec,
		AudioCodec:         audioCodec,
		Quality:            domain.ParseQuality(req.Quality),
		AudioTrack:         -1,
		SubtitleTrack:      -1,
		Multichannel:       req.Multichannel,
		SupportedSubtitles: table.Subtitles,
	}
	if req.AudioTrack != nil {
		hints.AudioTrack = *req.AudioTrack
	}
	if req.SubtitleTrack != nil {
		hints.SubtitleTrack = *req.SubtitleTrack
	}
	if jobType.Adaptive() {
		hints.SegmentDuration = time.Duration(h.config.Stream.SegmentDurationSec) * time.Second
	}

	prof, err := h.resolver.Resolve(element, hints)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			h.writeError(w, http.StatusBadRequest, "insufficient data to build profile")
			return
		}
		h.logger.Error("profile resolution failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "profile resolution failed")
		return
	}

	job := domain.NewJob(jobType, req.UserID, element.ID, client)
	if err := h.jobRepo.Create(ctx, job); err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	session := &streamSession{job: job, element: element, profile: prof}

	if jobType.Adaptive() {
		if err := h.startAdaptive(session); err != nil {
			h.jobRepo.End(ctx, job.ID)
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else if jobType != domain.JobTypeDownload {
		if err := h.startDirect(session, req.StartOffsetSec); err != nil {
			h.jobRepo.End(ctx, job.ID)
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	h.mu.Lock()
	if h.sessions == nil {
		h.sessions = make(map[uuid.UUID]*streamSession)
	}
	h.sessions[job.ID] = session
	h.mu.Unlock()

	h.metrics.IncrementStreamsTotal(string(jobType))
	h.metrics.IncrementStreamsActive()
	h.logger.Info("stream created",
		zap.String("jobId", job.ID.String()),
		zap.String("type", string(jobType)),
		zap.String("videoCodec", videoCodec.String()),
		zap.String("audioCodec", audioCodec.String()),
	)

	resp := CreateStreamResponse{
		JobID:      job.ID,
		Type:       jobType,
		VideoCodec: videoCodec.String(),
		AudioCodec: audioCodec.String(),
		CreatedAt:  job.CreatedAt,
	}
	base := "/v1/streams/" + job.ID.String()
	if jobType.Adaptive() {
		if jobType == domain.JobTypeHLS {
			resp.PlaylistURL = base + "/playlist.m3u8"
		} else {
			resp.PlaylistURL = base + "/manifest.mpd"
		}
	} else if jobType != domain.JobTypeDownload {
		resp.StreamURL = base
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// startAdaptive prepares the workspace and registers the session with the
// segment tracker; the encoder spawns lazily on the first segment request.
func (h *Handler) startAdaptive(s *streamSession) error {
	ws := stream.NewWorkspace(h.config.Stream.WorkdirRoot, s.job.ID)
	s.workspace = ws
	s.profile.WorkDir = ws.Dir()

	element, prof := s.element, s.profile
	builder := h.builder

	switch s.job.Type {
	case domain.JobTypeHLS:
		if h.config.Stream.HLSSegmentType == "fmp4" {
			s.fragmented = true
			s.segmentExt = ".mp4"
		} else {
			s.segmentExt = ".ts"
		}
		h.tracker.Register(s.job.ID, ws, s.segmentExt, func(segment int) []string {
			p := *prof
			p.SegmentOffset = segment
			if s.fragmented {
				return builder.BuildDASHCommand(element, &p, ffmpeg.DASHContainerMP4)
			}
			return builder.BuildHLSCommand(element, &p)
		})
	case domain.JobTypeDASH:
		s.segmentExt = ".mp4"
		h.tracker.Register(s.job.ID, ws, s.segmentExt, func(segment int) []string {
			p := *prof
			p.SegmentOffset = segment
			return builder.BuildDASHCommand(element, &p, ffmpeg.DASHContainerMP4)
		})
	}
	return nil
}

// startDirect spawns the encoder immediately with its output piped to the
// session relay.
func (h *Handler) startDirect(s *streamSession, offsetSec float64) error {
	offset := time.Duration(offsetSec * float64(time.Second))

	var args []string
	switch s.job.Type {
	case domain.JobTypeAudio:
		args = h.builder.BuildAudioCommand(s.element, s.profile, offset)
	case domain.JobTypeVideo:
		args = h.builder.BuildVideoCommand(s.element, s.profile, offset)
	}
	if args == nil {
		return errors.New("stream command could not be built")
	}

	_, err := h.supervisor.Start(s.job.ID, args, stream.StartOptions{PipeOutput: true})
	if err != nil {
		return errors.New("failed to start encoder")
	}
	h.metrics.IncrementFFmpegProcesses()
	return nil
}

// GetStream relays a direct stream's encoder output to the client. The
// session ends together with the connection, in either order of triggering.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if session.job.Type.Adaptive() || session.job.Type == domain.JobTypeDownload {
		h.writeError(w, http.StatusBadRequest, "not a direct stream")
		return
	}

	proc, live := h.supervisor.Get(session.job.ID)
	if !live || proc.Output() == nil {
		h.writeError(w, http.StatusGone, "stream has ended")
		return
	}

	start := time.Now()
	jobType := string(session.job.Type)
	total := h.relay.StreamFunc(w, r, proc.Output(), directContentType(session), func(n int64) {
		h.metrics.AddBytesDelivered(jobType, float64(n))
	})
	h.metrics.RecordDeliveryDuration("stream", time.Since(start).Seconds())

	// The client is gone or the encoder finished; tear the session down and
	// settle the bookkeeping off the request context.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.jobRepo.Touch(ctx, session.job.ID, total); err != nil {
		h.logger.Warn("failed to record transferred bytes", zap.Error(err))
	}
	if err := h.statsRepo.AddBytesStreamed(ctx, session.job.UserID, total); err != nil {
		h.logger.Warn("failed to update user stats", zap.Error(err))
	}
	h.endSession(ctx, session)
}

// GetPlaylist serves the session's HLS playlist or DASH manifest.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if !session.job.Type.Adaptive() {
		h.writeError(w, http.StatusBadRequest, "not an adaptive stream")
		return
	}

	params := h.playlistParams(session)
	if session.job.Type == domain.JobTypeHLS {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(ffmpeg.GenerateHLSPlaylist(params)))
		return
	}
	w.Header().Set("Content-Type", "application/dash+xml")
	w.Write([]byte(ffmpeg.GenerateDASHManifest(params)))
}

func (h *Handler) playlistParams(s *streamSession) ffmpeg.PlaylistParams {
	prof, element := s.profile, s.element

	bandwidth := prof.VideoBitrate * 1000
	if bandwidth == 0 {
		bandwidth = int(element.Bitrate)
	}
	width, height := prof.Width, prof.Height
	if width == 0 && element.Video != nil {
		width, height = element.Video.Width, element.Video.Height
	}

	videoCodec := prof.VideoCodec
	if !prof.VideoTranscodeRequired {
		videoCodec = prof.SourceVideoCodec
	}
	audioCodec := prof.AudioCodec
	if prof.AudioTrack < 0 {
		audioCodec = domain.CodecUnsupported
	}

	params := ffmpeg.PlaylistParams{
		Duration:        element.Duration,
		SegmentDuration: prof.SegmentDuration,
		SegmentExt:      s.segmentExt,
		Bandwidth:       bandwidth,
		Width:           width,
		Height:          height,
		VideoCodecAttr:  ffmpeg.CodecAttr(videoCodec),
		AudioCodecAttr:  ffmpeg.CodecAttr(audioCodec),
	}
	if s.fragmented {
		params.InitSegment = "init.mp4"
	}
	return params
}

// GetSegment serves one adaptive segment, driving the tracker's
// cancel-and-respawn logic on position jumps.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if !session.job.Type.Adaptive() {
		h.writeError(w, http.StatusBadRequest, "not an adaptive stream")
		return
	}

	name := chi.URLParam(r, "segment")
	if session.fragmented && name == "init.mp4" {
		h.serveInitSegment(w, r, session)
		return
	}

	n, ok := parseSegmentName(name, session.segmentExt)
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown segment")
		return
	}

	start := time.Now()
	path, err := h.tracker.Request(r.Context(), session.job.ID, n)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			h.writeError(w, http.StatusNotFound, "stream not found")
		case errors.Is(err, domain.ErrSegmentUnavailable):
			h.writeError(w, http.StatusNotFound, "segment unavailable")
		case errors.Is(err, domain.ErrProcessStartFailed):
			h.logger.Error("encoder start failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to start encoder")
		default:
			h.logger.Error("segment request failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "segment request failed")
		}
		return
	}

	ctx := r.Context()
	if err := h.jobRepo.SetSegment(ctx, session.job.ID, n); err != nil {
		h.logger.Warn("failed to record segment", zap.Error(err))
	}

	if session.fragmented {
		h.serveFragmentedSegment(w, session, n, path)
	} else {
		h.files.ServeFile(w, r, path, segmentContentType(session.segmentExt))
	}
	h.metrics.RecordDeliveryDuration("segment", time.Since(start).Seconds())
}

// serveInitSegment builds the init segment from the session's demuxed track
// layout: sample entries and decoder configuration come from the encoder's
// own output, so the avcC/hvcC/esds records always match the fragments.
func (h *Handler) serveInitSegment(w http.ResponseWriter, r *http.Request, s *streamSession) {
	tracks, err := h.sessionTracks(r.Context(), s)
	if err != nil {
		h.logger.Warn("init segment unavailable",
			zap.String("jobId", s.job.ID.String()),
			zap.Error(err))
		h.writeError(w, http.StatusNotFound, "init segment unavailable")
		return
	}
	data := fmp4.InitSegment(tracks...).Bytes()
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// serveFragmentedSegment rewraps the encoder-produced MP4 segment file into
// a moof/mdat fragment carrying the file's elementary samples.
func (h *Handler) serveFragmentedSegment(w http.ResponseWriter, s *streamSession, n int, path string) {
	seg, tracks, err := fmp4.RemuxSegmentFile(path, uint32(n+1))
	if err != nil {
		// The segment source vanished or is malformed; abort this segment only.
		h.logger.Warn("segment source unreadable",
			zap.String("jobId", s.job.ID.String()),
			zap.Int("segment", n),
			zap.Error(err))
		h.writeError(w, http.StatusNotFound, "segment unavailable")
		return
	}
	h.cacheSessionTracks(s, tracks)

	data := seg.Bytes()
	w.Header().Set("Content-Type", "video/iso.segment")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// sessionTracks returns the session's track layout, priming the cache from
// the nearest reachable segment when no fragment has been served yet.
func (h *Handler) sessionTracks(ctx context.Context, s *streamSession) ([]*fmp4.TrackInfo, error) {
	h.mu.Lock()
	tracks := s.tracks
	h.mu.Unlock()
	if tracks != nil {
		return tracks, nil
	}

	n, err := h.tracker.LastRequested(s.job.ID)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	path, err := h.tracker.Request(ctx, s.job.ID, n)
	if err != nil {
		return nil, err
	}
	demuxed, err := fmp4.DemuxFile(path)
	if err != nil {
		return nil, err
	}
	tracks = make([]*fmp4.TrackInfo, len(demuxed))
	for i := range demuxed {
		tracks[i] = &demuxed[i].Info
	}
	h.cacheSessionTracks(s, tracks)
	return tracks, nil
}

func (h *Handler) cacheSessionTracks(s *streamSession, tracks []*fmp4.TrackInfo) {
	h.mu.Lock()
	s.tracks = tracks
	h.mu.Unlock()
}

// DeleteStream ends a playback session. Ending twice is a no-op.
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	h.mu.Lock()
	session := h.sessions[jobID]
	h.mu.Unlock()
	if session == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
		return
	}

	h.endSession(r.Context(), session)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// EndJob ends a session by id; the inactivity sweep uses it directly.
func (h *Handler) EndJob(ctx context.Context, jobID uuid.UUID) {
	h.mu.Lock()
	session := h.sessions[jobID]
	h.mu.Unlock()
	if session != nil {
		h.endSession(ctx, session)
		return
	}
	// No live session; still settle persistence.
	h.supervisor.End(jobID)
	if err := h.jobRepo.End(ctx, jobID); err != nil {
		h.logger.Warn("failed to end job", zap.Error(err))
	}
}

func (h *Handler) endSession(ctx context.Context, s *streamSession) {
	h.mu.Lock()
	_, present := h.sessions[s.job.ID]
	delete(h.sessions, s.job.ID)
	h.mu.Unlock()
	if !present {
		return
	}

	if s.job.Type.Adaptive() {
		if err := h.tracker.End(s.job.ID); err != nil {
			h.logger.Warn("tracker end failed", zap.Error(err))
		}
	} else {
		h.supervisor.End(s.job.ID)
		h.metrics.DecrementFFmpegProcesses()
	}
	if err := h.jobRepo.End(ctx, s.job.ID); err != nil {
		h.logger.Warn("failed to end job", zap.Error(err))
	}
	h.metrics.DecrementStreamsActive()
	h.logger.Info("stream ended", zap.String("jobId", s.job.ID.String()))
}

// RegisterMediaRequest identifies a source file to add to the library.
type RegisterMediaRequest struct {
	Path string `json:"path"`
}

// RegisterMedia inspects a source file with ffprobe and upserts its metadata
// snapshot. Registering an already-known path refreshes the stored streams
// and keeps the element's id.
func (h *Handler) RegisterMedia(w http.ResponseWriter, r *http.Request) {
	var req RegisterMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		h.writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	ctx := r.Context()
	element, err := h.prober.Probe(ctx, req.Path)
	if err != nil {
		h.logger.Warn("source inspection failed",
			zap.String("path", req.Path),
			zap.Error(err))
		h.writeError(w, http.StatusUnprocessableEntity, "source could not be inspected")
		return
	}

	id, err := h.mediaRepo.Upsert(ctx, element)
	if err != nil {
		h.logger.Error("failed to store media element", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store media element")
		return
	}
	element.ID = id

	h.logger.Info("media registered",
		zap.Int64("mediaId", element.ID),
		zap.String("path", element.Path),
		zap.String("container", element.Container))
	h.writeJSON(w, http.StatusCreated, element)
}

// LookupMedia returns the stored element for a source path.
func (h *Handler) LookupMedia(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	element, err := h.mediaRepo.GetByPath(r.Context(), path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "media not found")
			return
		}
		h.logger.Error("failed to load media element", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load media element")
		return
	}
	h.writeJSON(w, http.StatusOK, element)
}

// DownloadMedia serves the source file with byte-range semantics.
func (h *Handler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	mediaID, err := strconv.ParseInt(chi.URLParam(r, "mediaID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid media ID")
		return
	}

	element, err := h.mediaRepo.GetByID(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "media not found")
			return
		}
		h.logger.Error("failed to load media element", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load media element")
		return
	}

	start := time.Now()
	h.files.ServeFile(w, r, element.Path, containerContentType(element.Container))
	h.metrics.RecordDeliveryDuration("download", time.Since(start).Seconds())
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "healthy"}
	statusCode := http.StatusOK

	if err := h.db.Health(ctx); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		status["database"] = "unhealthy"
		status["status"] = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["database"] = "healthy"
	}

	h.writeJSON(w, statusCode, status)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*streamSession, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid job ID")
		return nil, false
	}

	h.mu.Lock()
	session := h.sessions[jobID]
	h.mu.Unlock()
	if session == nil {
		h.writeError(w, http.StatusNotFound, "stream not found")
		return nil, false
	}
	return session, true
}

func (h *Handler) tableForType(jobType domain.JobType) capability.Table {
	switch jobType {
	case domain.JobTypeHLS:
		if h.config.Stream.HLSSegmentType == "fmp4" {
			return capability.HLSTable()
		}
		return capability.MPEGTSTable()
	case domain.JobTypeDASH:
		return capability.DASHTable()
	case domain.JobTypeAudio:
		return capability.AudioTable()
	default:
		return capability.MPEGTSTable()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func parseJobType(s string) (domain.JobType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio":
		return domain.JobTypeAudio, true
	case "video":
		return domain.JobTypeVideo, true
	case "download":
		return domain.JobTypeDownload, true
	case "hls":
		return domain.JobTypeHLS, true
	case "dash":
		return domain.JobTypeDASH, true
	default:
		return "", false
	}
}

// parseClientCodecs maps declared decoder names to the codec enum. Video
// entries may carry a profile suffix after a slash.
func parseClientCodecs(names []string) domain.CodecSet {
	if len(names) == 0 {
		return nil
	}
	set := domain.NewCodecSet()
	for _, name := range names {
		base, profileName := name, ""
		if idx := strings.IndexByte(name, '/'); idx >= 0 {
			base, profileName = name[:idx], name[idx+1:]
		}
		if c := domain.ParseVideoCodec(base, profileName); c != domain.CodecUnsupported {
			set.Add(c)
			continue
		}
		if c := domain.ParseAudioCodec(base); c != domain.CodecUnsupported {
			set.Add(c)
			continue
		}
		if c := domain.ParseSubtitleCodec(base); c != domain.CodecUnsupported {
			set.Add(c)
		}
	}
	return set
}

// parseSegmentName extracts the segment number from a stream%05d.<ext> name.
func parseSegmentName(name, ext string) (int, bool) {
	if !strings.HasPrefix(name, "stream") || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "stream"), ext)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func directContentType(s *streamSession) string {
	if s.job.Type == domain.JobTypeVideo {
		return "video/x-matroska"
	}
	switch s.profile.AudioCodec {
	case domain.CodecMP3:
		return "audio/mpeg"
	case domain.CodecFLAC:
		return "audio/flac"
	case domain.CodecVorbis:
		return "audio/ogg"
	case domain.CodecAC3, domain.CodecEAC3:
		return "audio/ac3"
	default:
		return "audio/aac"
	}
}

func segmentContentType(ext string) string {
	switch ext {
	case ".ts":
		return "video/mp2t"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}

func containerContentType(container string) string {
	switch container {
	case "mkv":
		return "video/x-matroska"
	case "mp4", "mov":
		return "video/mp4"
	case "avi":
		return "video/x-msvideo"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
