// Package archive implements the bit-stable ZIP archive format of
// spec.md §6: a "c" configuration blob, an "i" init listing, and one
// "m<T>"/"l<T>" pair of fixed-width little-endian record files per tick
// that actually changed.
//
// Grounded on pkg/bundle/serialization.go's encoding/binary Encoder/Decoder
// idiom (adapted from BigEndian to LittleEndian and from DTN bundle fields
// to machine/link diff fields) and celestial/zip_serializer.py for the
// file-naming scheme and the configuration-hash default filename.
package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/differ"
	"github.com/OpenFogStack/celestial/internal/errs"
	"github.com/OpenFogStack/celestial/internal/types"
)

const (
	configFile    = "c"
	initFile      = "i"
	machineDiffPx = "m"
	linkDiffPx    = "l"
)

// InitRecord is one line of the "i" file: a machine's identity and VM
// configuration, spec.md §6.
type InitRecord struct {
	ID      types.MachineID
	Name    string
	Machine config.MachineConfig
}

// DefaultFilename derives satgen's default output name, an 8-hex-digit
// FNV-1a hash of the configuration's canonical JSON encoding, matching
// celestial/zip_serializer.py's hash-of-config naming convention. A
// cryptographic hash (golang.org/x/crypto) is deliberately not used here;
// see DESIGN.md — this is a non-adversarial cache key, not a security
// boundary.
func DefaultFilename(cfg *config.Config) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", errs.WrapSerialiserError("marshal configuration for default filename", err)
	}
	h := fnv.New32a()
	_, _ = h.Write(raw)
	return fmt.Sprintf("%08x.zip", h.Sum32()), nil
}

// Writer writes an archive's files to the underlying writer as each entry
// is created: a tick's records are packed into an in-memory buffer and
// written as one entry, and Close then adds the ZIP central directory.
// Nothing is held back until Close.
type Writer struct {
	zw *zip.Writer
}

// NewWriter wraps w (typically an *os.File) as an archive writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteConfig writes the opaque "c" blob: a JSON encoding of cfg, chosen so
// restore does not depend on this module's internal Go types (spec.md §6:
// "opaque to the downstream; round-trip-identical on restore").
func (w *Writer) WriteConfig(cfg *config.Config) error {
	f, err := w.zw.Create(configFile)
	if err != nil {
		return errs.WrapSerialiserError("create configuration entry", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return errs.WrapSerialiserError("write configuration entry", err)
	}
	return nil
}

// WriteInit writes the "i" file: one comma-separated line per machine,
// spec.md §6.
func (w *Writer) WriteInit(records []InitRecord) error {
	f, err := w.zw.Create(initFile)
	if err != nil {
		return errs.WrapSerialiserError("create init entry", err)
	}
	bw := bufio.NewWriter(f)
	for _, r := range records {
		boot := strings.Join(r.Machine.BootParameters, "|")
		line := fmt.Sprintf("%d,%d,%s,%d,%d,%d,%s,%s,%s\n",
			r.ID.Group, r.ID.ID, r.Name,
			r.Machine.VCPUCount, r.Machine.MemSizeMiB, r.Machine.DiskSizeMiB,
			r.Machine.KernelPath, r.Machine.RootfsPath, boot)
		if _, err := bw.WriteString(line); err != nil {
			return errs.WrapSerialiserError("write init line", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errs.WrapSerialiserError("flush init entry", err)
	}
	return nil
}

// WriteTick writes the "m<T>"/"l<T>" entries for tick, skipping whichever
// of the two has no records (scenario 5 of spec.md §8: a tick with no
// changes creates neither file).
func (w *Writer) WriteTick(tick int, machineDiffs []differ.MachineDiff, linkDiffs []differ.LinkDiff) error {
	if len(machineDiffs) > 0 {
		f, err := w.zw.Create(fmt.Sprintf("%s%d", machineDiffPx, tick))
		if err != nil {
			return errs.WrapSerialiserError("create machine diff entry", err)
		}
		var buf bytes.Buffer
		for _, d := range machineDiffs {
			if err := binary.Write(&buf, binary.LittleEndian, d.ID.Group); err != nil {
				return errs.WrapSerialiserError("pack machine diff", err)
			}
			if err := binary.Write(&buf, binary.LittleEndian, d.ID.ID); err != nil {
				return errs.WrapSerialiserError("pack machine diff", err)
			}
			if err := binary.Write(&buf, binary.LittleEndian, uint8(d.State)); err != nil {
				return errs.WrapSerialiserError("pack machine diff", err)
			}
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			return errs.WrapSerialiserError("write machine diff entry", err)
		}
	}

	if len(linkDiffs) > 0 {
		f, err := w.zw.Create(fmt.Sprintf("%s%d", linkDiffPx, tick))
		if err != nil {
			return errs.WrapSerialiserError("create link diff entry", err)
		}
		var buf bytes.Buffer
		for _, d := range linkDiffs {
			if err := packLinkDiff(&buf, d); err != nil {
				return errs.WrapSerialiserError("pack link diff", err)
			}
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			return errs.WrapSerialiserError("write link diff entry", err)
		}
	}

	return nil
}

// Close flushes the ZIP central directory. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return errs.WrapSerialiserError("close archive", err)
	}
	return nil
}

func packLinkDiff(buf *bytes.Buffer, d differ.LinkDiff) error {
	blocked := uint8(0)
	if !d.Active {
		blocked = 1
	}
	fields := []any{
		d.Src.Group, d.Src.ID,
		d.Tgt.Group, d.Tgt.ID,
		d.LatencyUS, d.BandwidthKbits,
		blocked,
		d.NextHop.Group, d.NextHop.ID,
		d.PrevHop.Group, d.PrevHop.ID,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

const linkDiffRecordSize = 1 + 2 + 1 + 2 + 4 + 4 + 1 + 1 + 2 + 1 + 2
const machineDiffRecordSize = 1 + 2 + 1

// Reader opens a previously-written archive for replay, spec.md §6.
type Reader struct {
	zr *zip.Reader
}

// OpenReader wraps ra (typically backed by os.Open + file.Stat) as an
// archive reader.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, errs.WrapSerialiserError("open archive", err)
	}
	return &Reader{zr: zr}, nil
}

func (r *Reader) find(name string) (*zip.File, bool) {
	for _, f := range r.zr.File {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// ReadConfig restores the configuration document.
func (r *Reader) ReadConfig() (*config.Config, error) {
	f, ok := r.find(configFile)
	if !ok {
		return nil, errs.WrapSerialiserError("configuration entry missing", nil)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errs.WrapSerialiserError("open configuration entry", err)
	}
	defer rc.Close()

	var cfg config.Config
	if err := json.NewDecoder(rc).Decode(&cfg); err != nil {
		return nil, errs.WrapSerialiserError("decode configuration entry", err)
	}
	return &cfg, nil
}

// ReadInit restores the per-machine init listing.
func (r *Reader) ReadInit() ([]InitRecord, error) {
	f, ok := r.find(initFile)
	if !ok {
		return nil, errs.WrapSerialiserError("init entry missing", nil)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errs.WrapSerialiserError("open init entry", err)
	}
	defer rc.Close()

	var records []InitRecord
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 9)
		if len(parts) != 9 {
			return nil, errs.WrapSerialiserError(fmt.Sprintf("malformed init line: %q", line), nil)
		}
		group, _ := strconv.Atoi(parts[0])
		id, _ := strconv.Atoi(parts[1])
		vcpu, _ := strconv.Atoi(parts[3])
		mem, _ := strconv.Atoi(parts[4])
		disk, _ := strconv.Atoi(parts[5])
		var boot []string
		if parts[8] != "" {
			boot = strings.Split(parts[8], "|")
		}
		records = append(records, InitRecord{
			ID:   types.MachineID{Group: uint8(group), ID: uint16(id)},
			Name: parts[2],
			Machine: config.MachineConfig{
				VCPUCount:      vcpu,
				MemSizeMiB:     mem,
				DiskSizeMiB:    disk,
				KernelPath:     parts[6],
				RootfsPath:     parts[7],
				BootParameters: boot,
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errs.WrapSerialiserError("scan init entry", err)
	}
	return records, nil
}

// Ticks enumerates, in ascending order, the ticks for which at least one
// diff file exists.
func (r *Reader) Ticks() []int {
	seen := map[int]bool{}
	for _, f := range r.zr.File {
		if f.Name == configFile || f.Name == initFile {
			continue
		}
		var t int
		var n int
		if _, err := fmt.Sscanf(f.Name[1:], "%d", &t); err == nil {
			n = t
			seen[n] = true
		}
	}
	ticks := make([]int, 0, len(seen))
	for t := range seen {
		ticks = append(ticks, t)
	}
	sort.Ints(ticks)
	return ticks
}

// ReadTick restores the machine and link diffs recorded for tick.
func (r *Reader) ReadTick(tick int) ([]differ.MachineDiff, []differ.LinkDiff, error) {
	var machines []differ.MachineDiff
	var links []differ.LinkDiff

	if f, ok := r.find(fmt.Sprintf("%s%d", machineDiffPx, tick)); ok {
		raw, err := readAll(f)
		if err != nil {
			return nil, nil, errs.WrapSerialiserError("read machine diff entry", err)
		}
		if len(raw)%machineDiffRecordSize != 0 {
			return nil, nil, errs.WrapSerialiserError("machine diff entry has unexpected length", nil)
		}
		br := bytes.NewReader(raw)
		for br.Len() > 0 {
			var group uint8
			var id uint16
			var state uint8
			if err := binary.Read(br, binary.LittleEndian, &group); err != nil {
				return nil, nil, err
			}
			if err := binary.Read(br, binary.LittleEndian, &id); err != nil {
				return nil, nil, err
			}
			if err := binary.Read(br, binary.LittleEndian, &state); err != nil {
				return nil, nil, err
			}
			machines = append(machines, differ.MachineDiff{
				ID:    types.MachineID{Group: group, ID: id},
				State: types.VMState(state),
			})
		}
	}

	if f, ok := r.find(fmt.Sprintf("%s%d", linkDiffPx, tick)); ok {
		raw, err := readAll(f)
		if err != nil {
			return nil, nil, errs.WrapSerialiserError("read link diff entry", err)
		}
		if len(raw)%linkDiffRecordSize != 0 {
			return nil, nil, errs.WrapSerialiserError("link diff entry has unexpected length", nil)
		}
		br := bytes.NewReader(raw)
		for br.Len() > 0 {
			d, err := unpackLinkDiff(br)
			if err != nil {
				return nil, nil, err
			}
			links = append(links, d)
		}
	}

	return machines, links, nil
}

func unpackLinkDiff(br *bytes.Reader) (differ.LinkDiff, error) {
	var srcGroup, tgtGroup, blocked, nextGroup, prevGroup uint8
	var srcID, tgtID, nextID, prevID uint16
	var latency, bandwidth uint32

	fields := []any{
		&srcGroup, &srcID,
		&tgtGroup, &tgtID,
		&latency, &bandwidth,
		&blocked,
		&nextGroup, &nextID,
		&prevGroup, &prevID,
	}
	for _, f := range fields {
		if err := binary.Read(br, binary.LittleEndian, f); err != nil {
			return differ.LinkDiff{}, err
		}
	}

	return differ.LinkDiff{
		Src:            types.MachineID{Group: srcGroup, ID: srcID},
		Tgt:            types.MachineID{Group: tgtGroup, ID: tgtID},
		Active:         blocked == 0,
		LatencyUS:      latency,
		BandwidthKbits: bandwidth,
		NextHop:        types.MachineID{Group: nextGroup, ID: nextID},
		PrevHop:        types.MachineID{Group: prevGroup, ID: prevID},
	}, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
