package pngme

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/klauspost/compress/gzip"
	"github.com/vbatts/tar-split/archive/tar"
)

const (
	// ManifestName is the archive entry listing every exported chunk.
	ManifestName  = "manifest.txt"
	chunkEntryExt = ".chunk"
)

// ChunkEntryName is the archive entry name for the chunk at index.
func ChunkEntryName(index int, chunkType ChunkType) string {
	return fmt.Sprintf("%04d-%s%s", index, chunkType, chunkEntryExt)
}

// Export writes png to w as a gzip-compressed tar holding one entry per chunk,
// each with the chunk's serialized bytes, followed by a manifest. Entries use
// a fixed modification time so the same png always exports identically.
// progress, if set, is called after each chunk entry is written.
func Export(png *Png, w io.Writer, progress ProgressCallback) (err error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	defer func() {
		if cerr := tw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close tar writer: %w", cerr)
		}
		if cerr := gz.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close gzip writer: %w", cerr)
		}
	}()

	chunks := png.Chunks()
	if progress != nil {
		progress(0, len(chunks))
	}

	var manifest bytes.Buffer
	for i, c := range chunks {
		name := ChunkEntryName(i, c.ChunkType())
		if err := writeEntry(tw, name, c.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(&manifest, "%04d %s %d %d %s\n", i, c.ChunkType(), c.Length(), c.CRC(), c.Digest())
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}
	if err := writeEntry(tw, ManifestName, manifest.Bytes()); err != nil {
		return err
	}

	logger.Info("Exported %d chunks", len(chunks))
	return nil
}

// ReadExport rebuilds a Png from an archive written by Export. Chunk entries
// are ordered by the numeric index in their name and each one is CRC-checked
// like a chunk in a file.
func ReadExport(r io.Reader) (*Png, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip reader: %w", err)
	}
	defer gz.Close()

	type entry struct {
		index int
		name  string
		data  []byte
	}
	var entries []entry

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate export archive: %w", err)
		}
		if !strings.HasSuffix(header.Name, chunkEntryExt) {
			continue
		}
		index, err := chunkEntryIndex(header.Name)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		entries = append(entries, entry{index: index, name: header.Name, data: data})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	png := &Png{}
	for _, e := range entries {
		chunk, err := ParseChunk(e.data)
		if err != nil {
			return nil, err
		}
		if chunk.TotalSize() != len(e.data) {
			return nil, fmt.Errorf("entry %s has %d trailing bytes", e.name, len(e.data)-chunk.TotalSize())
		}
		png.AppendChunk(chunk)
	}
	return png, nil
}

// chunkEntryIndex parses the index prefix of a name built by ChunkEntryName.
func chunkEntryIndex(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return 0, fmt.Errorf("entry %s has no index prefix", name)
	}
	index, err := strconv.Atoi(prefix)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("entry %s has invalid index %q", name, prefix)
	}
	return index, nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  time.Unix(0, 0),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
