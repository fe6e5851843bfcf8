package linkable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

const (
	digestPrefixSize = 8 * 1024
	compareBufSize   = 64 * 1024
)

// partialDigest hashes the first digestPrefixSize bytes of path.
func partialDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.CopyN(h, f, digestPrefixSize); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	return h.Sum64(), nil
}

// digest returns the cached partial digest of ino, computing it from any of its paths.
func (d *fsDev) digest(ino uint64, computed *int64) (uint64, error) {
	if res, ok := d.digests[ino]; ok {
		return res.sum, res.err
	}

	rec, ok := d.firstPath(ino, "")
	if !ok {
		return 0, fmt.Errorf("inode %d has no known path", ino)
	}

	sum, err := partialDigest(rec.Path())
	d.digests[ino] = digestResult{sum: sum, err: err}
	*computed++

	return sum, err
}

// digestFor is digest for an inode whose path may not be catalogued yet.
func (d *fsDev) digestFor(ino uint64, rec PathRecord, computed *int64) (uint64, error) {
	if res, ok := d.digests[ino]; ok {
		return res.sum, res.err
	}

	sum, err := partialDigest(rec.Path())
	d.digests[ino] = digestResult{sum: sum, err: err}
	*computed++

	return sum, err
}

// contentsEqual compares two files byte by byte.
func contentsEqual(path1, path2 string) (bool, error) {
	f1, err := os.Open(path1)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path1, err)
	}
	defer f1.Close()

	f2, err := os.Open(path2)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path2, err)
	}
	defer f2.Close()

	buf1 := make([]byte, compareBufSize)
	buf2 := make([]byte, compareBufSize)
	for {
		n1, err1 := io.ReadFull(f1, buf1)
		n2, err2 := io.ReadFull(f2, buf2)

		if !bytes.Equal(buf1[:n1], buf2[:n2]) {
			return false, nil
		}

		eof1 := errors.Is(err1, io.EOF) || errors.Is(err1, io.ErrUnexpectedEOF)
		eof2 := errors.Is(err2, io.EOF) || errors.Is(err2, io.ErrUnexpectedEOF)
		switch {
		case err1 != nil && !eof1:
			return false, fmt.Errorf("read %s: %w", path1, err1)
		case err2 != nil && !eof2:
			return false, fmt.Errorf("read %s: %w", path2, err2)
		case eof1 || eof2:
			return eof1 && eof2, nil
		}
	}
}
