// Package delivery implements the two HTTP delivery modes: byte-range file
// serving with conditional-request validation, and live relaying of encoder
// output.
package delivery

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// multipartBoundary is the fixed boundary token for multi-range responses.
const multipartBoundary = "MULTIPART_BYTERANGES"

// expiryWindow controls the Expires header on served files.
const expiryWindow = 24 * time.Hour

// FileServer serves finite files with byte-range and conditional-request
// semantics. The file name doubles as a synthetic ETag; segment files are
// immutable once written, so the name identifies the representation.
type FileServer struct {
	logger *zap.Logger
}

// NewFileServer creates a file server.
func NewFileServer(logger *zap.Logger) *FileServer {
	return &FileServer{logger: logger}
}

// ServeFile writes the file at path to the response, honoring Range,
// If-None-Match, If-Modified-Since, If-Match, and If-Unmodified-Since.
// Validation failures never change state: 304, 412, and 416 are per-request.
func (s *FileServer) ServeFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	size := info.Size()
	modTime := info.ModTime().UTC()
	name := filepath.Base(path)
	etag := `"` + name + `"`

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", modTime.Format(http.TimeFormat))
	w.Header().Set("Expires", time.Now().Add(expiryWindow).UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))

	switch checkPreconditions(r, etag, modTime) {
	case http.StatusPreconditionFailed:
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	case http.StatusNotModified:
		w.WriteHeader(http.StatusNotModified)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, f)
		}
		return
	}

	ranges, err := parseRanges(rangeHeader, size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if len(ranges) == 1 {
		s.serveSingleRange(w, r, f, ranges[0], size, contentType)
		return
	}
	s.serveMultiRange(w, r, f, ranges, size, contentType)
}

type byteRange struct {
	start  int64
	length int64
}

func (br byteRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", br.start, br.start+br.length-1, size)
}

// parseRanges parses a Range header against the validated length. Malformed
// specs, descending pairs, and wholly out-of-bounds ranges are errors; ranges
// must appear in ascending order.
func parseRanges(header string, size int64) ([]byteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("invalid range unit")
	}

	var ranges []byteRange
	var lastEnd int64 = -1
	for _, spec := range strings.Split(header[len(prefix):], ",") {
		spec = strings.TrimSpace(spec)
		dash := strings.IndexByte(spec, '-')
		if dash < 0 {
			return nil, fmt.Errorf("invalid range spec %q", spec)
		}
		startStr, endStr := spec[:dash], spec[dash+1:]

		var br byteRange
		if startStr == "" {
			// Suffix form: last N bytes.
			n, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid suffix range %q", spec)
			}
			if n > size {
				n = size
			}
			br = byteRange{start: size - n, length: n}
		} else {
			start, err := strconv.ParseInt(startStr, 10, 64)
			if err != nil || start < 0 {
				return nil, fmt.Errorf("invalid range start %q", spec)
			}
			if start >= size {
				return nil, fmt.Errorf("range start beyond resource")
			}
			end := size - 1
			if endStr != "" {
				end, err = strconv.ParseInt(endStr, 10, 64)
				if err != nil || end < start {
					return nil, fmt.Errorf("invalid range end %q", spec)
				}
				if end >= size {
					end = size - 1
				}
			}
			br = byteRange{start: start, length: end - start + 1}
		}

		if br.start <= lastEnd {
			return nil, fmt.Errorf("out-of-order ranges")
		}
		lastEnd = br.start + br.length - 1
		ranges = append(ranges, br)
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("empty range set")
	}
	return ranges, nil
}

func (s *FileServer) serveSingleRange(w http.ResponseWriter, r *http.Request, f *os.File, br byteRange, size int64, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Range", br.contentRange(size))
	w.Header().Set("Content-Length", strconv.FormatInt(br.length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := f.Seek(br.start, io.SeekStart); err != nil {
		return
	}
	io.CopyN(w, f, br.length)
}

func (s *FileServer) serveMultiRange(w http.ResponseWriter, r *http.Request, f *os.File, ranges []byteRange, size int64, contentType string) {
	w.Header().Set("Content-Type", "multipart/byteranges; boundary="+multipartBoundary)
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}

	for _, br := range ranges {
		fmt.Fprintf(w, "\r\n--%s\r\n", multipartBoundary)
		fmt.Fprintf(w, "Content-Type: %s\r\n", contentType)
		fmt.Fprintf(w, "Content-Range: %s\r\n\r\n", br.contentRange(size))
		if _, err := f.Seek(br.start, io.SeekStart); err != nil {
			return
		}
		if _, err := io.CopyN(w, f, br.length); err != nil {
			return
		}
	}
	fmt.Fprintf(w, "\r\n--%s--\r\n", multipartBoundary)
}

// checkPreconditions evaluates the conditional request headers. If-Match and
// If-Unmodified-Since are checked before If-None-Match and If-Modified-Since.
func checkPreconditions(r *http.Request, etag string, modTime time.Time) int {
	if im := r.Header.Get("If-Match"); im != "" {
		if im != "*" && !etagMatch(im, etag) {
			return http.StatusPreconditionFailed
		}
	} else if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		if t, err := http.ParseTime(ius); err == nil && modTime.After(t) {
			return http.StatusPreconditionFailed
		}
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" || etagMatch(inm, etag) {
			return http.StatusNotModified
		}
	} else if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && !modTime.Truncate(time.Second).After(t) {
			return http.StatusNotModified
		}
	}

	return http.StatusOK
}

func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
