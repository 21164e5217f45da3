package indexstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

var indexMagic = [4]byte{'D', 'S', 'I', 'X'}

const artifactVersion = 1

// PrevSuffix names the artifacts of the generation before the current one.
const PrevSuffix = ".prev"

var (
	errIndexMissing   = errors.New("index artifact missing")
	errRecordsMissing = errors.New("records artifact missing")
)

// indexHeaderSize is magic + version u16 + generation (16 bytes) + count u64.
const indexHeaderSize = 4 + 2 + 16 + 8

// recordsFile is the JSON layout of the records artifact.
type recordsFile struct {
	Version    int                    `json:"version"`
	Generation string                 `json:"generation"`
	Dimension  int                    `json:"dimension"`
	Count      int                    `json:"count"`
	Records    []domain.IndexedRecord `json:"records"`
	Identity   map[string]int         `json:"identity"`
}

// Save persists the store to its configured artifacts.
func (s *Store) Save(ctx context.Context) error {
	return s.SaveTo(ctx, s.indexPath, s.recordsPath)
}

// Load replaces the in-memory state with the configured artifacts.
func (s *Store) Load(ctx context.Context) error {
	return s.LoadFrom(ctx, s.indexPath, s.recordsPath)
}

// SaveTo writes the index and the records to the given paths, creating
// parent directories. Both files are staged and synced before either is
// renamed into place, and the pair being replaced is kept with a
// PrevSuffix so LoadFrom can fall back to it.
func (s *Store) SaveTo(ctx context.Context, indexPath, recordsPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, indexPath, recordsPath)
}

func (s *Store) saveLocked(ctx context.Context, indexPath, recordsPath string) error {
	if indexPath == "" || recordsPath == "" {
		return fmt.Errorf("indexstore: %w: artifact paths not configured", domain.ErrInvalidInput)
	}
	defer logger.Timed("indexstore save")()

	gen := uuid.New()

	payload, err := s.index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("indexstore: encode index: %w", err)
	}

	var ib bytes.Buffer
	ib.Grow(indexHeaderSize + len(payload))
	ib.Write(indexMagic[:])
	_ = binary.Write(&ib, binary.LittleEndian, uint16(artifactVersion))
	ib.Write(gen[:])
	_ = binary.Write(&ib, binary.LittleEndian, uint64(len(s.records)))
	ib.Write(payload)

	rb, err := json.Marshal(recordsFile{
		Version:    artifactVersion,
		Generation: gen.String(),
		Dimension:  s.index.Dimension(),
		Count:      len(s.records),
		Records:    s.records,
		Identity:   s.identity,
	})
	if err != nil {
		return fmt.Errorf("indexstore: encode records: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := commitPair(indexPath, recordsPath, ib.Bytes(), rb); err != nil {
		return err
	}

	s.generation = gen.String()
	logger.Debug("indexstore: saved %d records (generation %s)", len(s.records), s.generation)
	return nil
}

// LoadFrom replaces the in-memory state with the artifacts at the given
// paths. When the pair is unusable the previous generation (PrevSuffix)
// is tried. When no pair can be loaded and an artifact is missing the
// store is reset to empty; otherwise the result is domain.ErrIndexCorrupt
// and the in-memory state is left untouched.
func (s *Store) LoadFrom(ctx context.Context, indexPath, recordsPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.loadPairLocked(indexPath, recordsPath)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errIndexMissing):
		logger.Debug("indexstore: no index at %s, starting empty", indexPath)
		return s.resetLocked()
	case !errors.Is(err, errRecordsMissing) && !errors.Is(err, domain.ErrIndexCorrupt):
		return err
	}

	prevErr := s.loadPairLocked(indexPath+PrevSuffix, recordsPath+PrevSuffix)
	if prevErr == nil {
		logger.Warn("indexstore: %v; loaded previous generation %s", err, s.generation)
		return nil
	}
	if errors.Is(err, errRecordsMissing) {
		logger.Warn("indexstore: index present but no records at %s, starting empty", recordsPath)
		return s.resetLocked()
	}
	return err
}

// loadPairLocked reads one index/records pair into the store. The store is
// only modified when the pair is consistent.
func (s *Store) loadPairLocked(indexPath, recordsPath string) error {
	ib, err := os.ReadFile(indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return errIndexMissing
	}
	if err != nil {
		return fmt.Errorf("indexstore: read index: %w", err)
	}

	rb, err := os.ReadFile(recordsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return errRecordsMissing
	}
	if err != nil {
		return fmt.Errorf("indexstore: read records: %w", err)
	}

	gen, count, payload, err := parseIndexArtifact(ib)
	if err != nil {
		return err
	}

	var rf recordsFile
	if err := json.Unmarshal(rb, &rf); err != nil {
		return fmt.Errorf("indexstore: %w: records: %v", domain.ErrIndexCorrupt, err)
	}
	if err := s.checkRecords(&rf, gen, count); err != nil {
		return err
	}

	snapshot, err := s.index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("indexstore: snapshot index: %w", err)
	}
	if err := s.index.UnmarshalBinary(payload); err != nil {
		_ = s.index.UnmarshalBinary(snapshot)
		return fmt.Errorf("indexstore: %w", errors.Join(domain.ErrIndexCorrupt, err))
	}
	if s.index.Len() != count {
		n := s.index.Len()
		_ = s.index.UnmarshalBinary(snapshot)
		return fmt.Errorf("indexstore: %w: index holds %d vectors, header says %d",
			domain.ErrIndexCorrupt, n, count)
	}

	s.records = rf.Records
	if s.records == nil {
		s.records = []domain.IndexedRecord{}
	}
	s.identity = rf.Identity
	if s.identity == nil {
		s.identity = make(map[string]int)
	}
	s.generation = rf.Generation

	logger.Debug("indexstore: loaded %d records (generation %s)", count, s.generation)
	return nil
}

func (s *Store) resetLocked() error {
	s.records = nil
	s.identity = make(map[string]int)
	s.generation = ""
	return s.index.Truncate(0)
}

// checkRecords validates a decoded records artifact against the index header.
func (s *Store) checkRecords(rf *recordsFile, gen uuid.UUID, count int) error {
	switch {
	case rf.Version != artifactVersion:
		return fmt.Errorf("indexstore: %w: records version %d", domain.ErrIndexCorrupt, rf.Version)
	case rf.Generation != gen.String():
		return fmt.Errorf("indexstore: %w: generation mismatch (index %s, records %s)",
			domain.ErrIndexCorrupt, gen, rf.Generation)
	case rf.Dimension != s.index.Dimension():
		return fmt.Errorf("indexstore: %w: records dimension %d, store dimension %d",
			domain.ErrIndexCorrupt, rf.Dimension, s.index.Dimension())
	case rf.Count != count || len(rf.Records) != count || len(rf.Identity) != count:
		return fmt.Errorf("indexstore: %w: count mismatch (index %d, records %d/%d, identity %d)",
			domain.ErrIndexCorrupt, count, rf.Count, len(rf.Records), len(rf.Identity))
	}

	for i, rec := range rf.Records {
		if pos, ok := rf.Identity[rec.Chunk.Key()]; !ok || pos != i {
			return fmt.Errorf("indexstore: %w: identity of record %d does not point back to it",
				domain.ErrIndexCorrupt, i)
		}
	}
	return nil
}

func parseIndexArtifact(data []byte) (uuid.UUID, int, []byte, error) {
	if len(data) < indexHeaderSize || !bytes.Equal(data[:4], indexMagic[:]) {
		return uuid.Nil, 0, nil, fmt.Errorf("indexstore: %w: bad index header", domain.ErrIndexCorrupt)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != artifactVersion {
		return uuid.Nil, 0, nil, fmt.Errorf("indexstore: %w: index version %d", domain.ErrIndexCorrupt, v)
	}

	gen, err := uuid.FromBytes(data[6:22])
	if err != nil {
		return uuid.Nil, 0, nil, fmt.Errorf("indexstore: %w: %v", domain.ErrIndexCorrupt, err)
	}
	count := binary.LittleEndian.Uint64(data[22:30])
	return gen, int(count), data[indexHeaderSize:], nil
}

// commitPair replaces both artifacts. Nothing is renamed until both
// staged files are on disk; the replaced pair is linked to PrevSuffix
// names first, and restored if the second rename fails.
func commitPair(indexPath, recordsPath string, index, records []byte) error {
	indexTmp, err := stageFile(indexPath, index)
	if err != nil {
		return fmt.Errorf("indexstore: write index: %w", err)
	}
	recordsTmp, err := stageFile(recordsPath, records)
	if err != nil {
		_ = os.Remove(indexTmp)
		return fmt.Errorf("indexstore: write records: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(indexTmp)
		_ = os.Remove(recordsTmp)
	}

	hadPrev, err := keepPrevious(indexPath, recordsPath)
	if err != nil {
		cleanup()
		return fmt.Errorf("indexstore: keep previous generation: %w", err)
	}

	if err := renameFile(indexTmp, indexPath); err != nil {
		cleanup()
		return fmt.Errorf("indexstore: write index: %w", err)
	}
	if err := renameFile(recordsTmp, recordsPath); err != nil {
		cleanup()
		if hadPrev {
			if rerr := os.Rename(indexPath+PrevSuffix, indexPath); rerr != nil {
				logger.Error("indexstore: restore previous index: %v", rerr)
			}
		}
		return fmt.Errorf("indexstore: write records: %w", err)
	}
	return nil
}

// keepPrevious hard-links the current pair to its PrevSuffix names. It
// reports false when there is no complete pair to keep.
func keepPrevious(indexPath, recordsPath string) (bool, error) {
	for _, p := range []string{indexPath, recordsPath} {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%s is not a regular file", p)
		}
	}
	for _, p := range []string{indexPath, recordsPath} {
		if err := linkOrCopy(p, p+PrevSuffix); err != nil {
			return false, err
		}
	}
	return true, nil
}

// linkOrCopy replaces dst with a hard link to src, copying when the
// filesystem does not support links.
func linkOrCopy(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp, err := stageFile(dst, data)
	if err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// renameFile is os.Rename, replaced in tests to fail a chosen rename.
var renameFile = os.Rename

// stageFile writes data to a synced temporary file beside path and
// returns its name.
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
