// Package loader decodes AIS position reports from delimited text
// files, transparently unwrapping zstd compression, per spec §4.1.
// Parsing is grounded on original_source/backend/app/ingest/loaders.py
// (column alias matching, permissive numeric/timestamp parsing,
// skip-and-count on a bad row); decompression uses
// github.com/klauspost/compress/zstd, the zstd implementation already
// present in the example pack's dependency graph.
package loader

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
	"github.com/seawatch/trackwatch/internal/metrics"
)

var (
	identifierAliases = aliasSet("mmsi")
	timestampAliases  = aliasSet("timestamp", "base_date_time", "BaseDateTime", "time", "date_time", "datetime")
	latAliases        = aliasSet("lat", "latitude", "y")
	lonAliases        = aliasSet("lon", "longitude", "lng", "long", "x")
	sogAliases        = aliasSet("sog")
	cogAliases        = aliasSet("cog")
	headingAliases    = aliasSet("heading")
)

func aliasSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

// columnIndex maps required/optional fields to their position in the
// header row. -1 means absent.
type columnIndex struct {
	identifier, timestamp, lat, lon, sog, cog, heading int
}

// Loader decodes one AIS source file. It never buffers the whole input
// unless LoadAll is called explicitly.
type Loader struct {
	path      string
	delimiter byte
	cols      columnIndex
	file      *os.File
	reader    *bufio.Reader
	decoded   io.ReadCloser
}

// Open detects format from path's suffixes, opens the file, unwraps
// zstd if present, and reads+validates the header row. Callers must
// call Close when done.
func Open(path string) (*Loader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.SourceError("opening %s: %w", path, err)
	}

	inner := strings.TrimSuffix(path, ".zst")
	delimiter := byte(',')
	if strings.HasSuffix(inner, ".dat") {
		delimiter = '\t'
	}

	var r io.Reader = f
	var decoded io.ReadCloser
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errs.SourceError("opening zstd stream for %s: %w", path, err)
		}
		decoded = zr.IOReadCloser()
		r = decoded
	} else if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errs.SourceError("opening gzip stream for %s: %w", path, err)
		}
		decoded = gz
		r = gz
	}

	l := &Loader{path: path, delimiter: delimiter, file: f, reader: bufio.NewReaderSize(r, 1<<20), decoded: decoded}

	if err := l.readHeader(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying file and decompressor.
func (l *Loader) Close() error {
	if l.decoded != nil {
		l.decoded.Close()
	}
	return l.file.Close()
}

func (l *Loader) readHeader() error {
	line, err := l.readLine()
	for err == nil && strings.TrimSpace(line) == "" {
		line, err = l.readLine()
	}
	if err != nil && err != io.EOF {
		return errs.SourceError("reading header from %s: %w", l.path, err)
	}
	if strings.TrimSpace(line) == "" {
		return errs.SourceError("%s has no header row", l.path)
	}

	fields := l.splitRow(line)
	idx := columnIndex{identifier: -1, timestamp: -1, lat: -1, lon: -1, sog: -1, cog: -1, heading: -1}
	for i, raw := range fields {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case identifierAliases[name]:
			idx.identifier = i
		case timestampAliases[name]:
			idx.timestamp = i
		case latAliases[name]:
			idx.lat = i
		case lonAliases[name]:
			idx.lon = i
		case sogAliases[name]:
			idx.sog = i
		case cogAliases[name]:
			idx.cog = i
		case headingAliases[name]:
			idx.heading = i
		}
	}

	var missing []string
	if idx.identifier < 0 {
		missing = append(missing, "mmsi")
	}
	if idx.timestamp < 0 {
		missing = append(missing, "timestamp")
	}
	if idx.lat < 0 {
		missing = append(missing, "lat")
	}
	if idx.lon < 0 {
		missing = append(missing, "lon")
	}
	if len(missing) > 0 {
		return errs.SourceError("%s missing required columns: %s", l.path, strings.Join(missing, ", "))
	}

	l.cols = idx
	return nil
}

func (l *Loader) readLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func (l *Loader) splitRow(line string) []string {
	if l.delimiter == '\t' {
		fields := strings.Split(line, "\t")
		if len(fields) == 1 {
			fields = strings.Fields(line)
		}
		return fields
	}
	return strings.Split(line, ",")
}

// Next reads and parses the next record, skipping (and counting) any
// row that fails to parse a required field. io.EOF signals the end of
// the file with no record returned.
func (l *Loader) Next() (domain.AisPoint, error) {
	for {
		line, err := l.readLine()
		if strings.TrimSpace(line) == "" {
			if err != nil {
				return domain.AisPoint{}, err
			}
			continue
		}
		fields := l.splitRow(line)
		point, ok := l.parseRow(fields)
		if !ok {
			metrics.RecordsRejected.WithLabelValues("unparseable_required_field").Inc()
			if err != nil {
				return domain.AisPoint{}, err
			}
			continue
		}
		return point, nil
	}
}

func (l *Loader) parseRow(fields []string) (domain.AisPoint, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	mmsi := get(l.cols.identifier)
	if mmsi == "" {
		return domain.AisPoint{}, false
	}

	ts, ok := parseTimestamp(get(l.cols.timestamp))
	if !ok {
		return domain.AisPoint{}, false
	}

	lat, ok := parseFloat(get(l.cols.lat))
	if !ok {
		return domain.AisPoint{}, false
	}
	lon, ok := parseFloat(get(l.cols.lon))
	if !ok {
		return domain.AisPoint{}, false
	}

	p := domain.AisPoint{VesselID: mmsi, Timestamp: ts, Latitude: lat, Longitude: lon}
	p.SOG = parseOptionalFloat(get(l.cols.sog))
	p.COG = normalizeAngle(parseOptionalFloat(get(l.cols.cog)))
	p.Heading = normalizeHeading(parseOptionalFloat(get(l.cols.heading)))
	return p, true
}

func normalizeAngle(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 360 {
		return nil
	}
	return v
}

func normalizeHeading(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v == domain.HeadingUnavailable {
		return v
	}
	if *v < 0 || *v > 360 {
		return nil
	}
	return v
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseOptionalFloat(s string) *float64 {
	f, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &f
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(0, int64(secs*float64(time.Second))).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// LoadAll reads the entire file into memory, for the buffered mode
// named in spec §4.1.
func (l *Loader) LoadAll() ([]domain.AisPoint, error) {
	var points []domain.AisPoint
	for {
		p, err := l.Next()
		if err == io.EOF {
			return points, nil
		}
		if err != nil {
			return points, errs.SourceError("reading %s: %w", l.path, err)
		}
		points = append(points, p)
	}
}

// StreamChunks pushes successive chunks of up to chunkSize points onto
// the returned channel until EOF, cancellation, or a read error, for
// the streaming mode named in spec §4.1. The channel is closed when
// done; a non-nil error is sent on errCh exactly once if the stream
// ended abnormally.
func (l *Loader) StreamChunks(ctx context.Context, chunkSize int) (<-chan []domain.AisPoint, <-chan error) {
	out := make(chan []domain.AisPoint)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		chunk := make([]domain.AisPoint, 0, chunkSize)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			p, err := l.Next()
			if err == io.EOF {
				if len(chunk) > 0 {
					out <- chunk
				}
				return
			}
			if err != nil {
				errCh <- errs.SourceError("reading %s: %w", l.path, err)
				return
			}

			chunk = append(chunk, p)
			if len(chunk) >= chunkSize {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
				chunk = make([]domain.AisPoint, 0, chunkSize)
			}
		}
	}()

	return out, errCh
}

// ShouldStream reports whether the file at path exceeds thresholdMB
// and should use the streaming mode by default, per spec §4.1.
func ShouldStream(path string, thresholdMB float64) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	mb := float64(info.Size()) / (1024 * 1024)
	return mb > thresholdMB
}
