// Package archive exports finalized RFP snapshots to zstd-compressed JSON
// lines files and reads them back, verifying every record's checksum.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/snapshot"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
)

// Extension is the suffix of archive files.
const Extension = ".jsonl.zst"

// maxLine bounds a single archived record.
const maxLine = 16 * 1024 * 1024

// Record is one line of an archive.
type Record struct {
	FinalizedID uuid.UUID       `json:"finalized_id"`
	SourceRFPID *uuid.UUID      `json:"source_rfp_id"`
	OrgID       uuid.UUID       `json:"org_id"`
	Status      string          `json:"status"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Checksum    uint64          `json:"checksum"`
	Snapshot    json.RawMessage `json:"snapshot"`
}

// FromFinalized converts a stored record to its archived form.
func FromFinalized(f *models.FinalizedRFP) Record {
	return Record{
		FinalizedID: f.FinalizedID,
		SourceRFPID: models.CloneID(f.SourceRFPID),
		OrgID:       f.OrgID,
		Status:      f.Status,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		CreatedAt:   f.CreatedAt,
		Checksum:    f.Checksum,
		Snapshot:    json.RawMessage(f.Snapshot),
	}
}

// Finalized converts an archived record back to the stored form.
func (r Record) Finalized() *models.FinalizedRFP {
	return &models.FinalizedRFP{
		FinalizedID: r.FinalizedID,
		SourceRFPID: models.CloneID(r.SourceRFPID),
		OrgID:       r.OrgID,
		Status:      r.Status,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Snapshot:    []byte(r.Snapshot),
		Checksum:    r.Checksum,
		CreatedAt:   r.CreatedAt,
	}
}

// Write compresses records to w. Every record is verified first; a corrupt
// snapshot aborts the write.
func Write(w io.Writer, records []*models.FinalizedRFP) (int64, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("failed to create encoder: %w", err)
	}

	var written int64
	jw := json.NewEncoder(enc)
	for _, rec := range records {
		if err := snapshot.VerifyChecksum(rec); err != nil {
			_ = enc.Close()
			return written, err
		}
		if err := jw.Encode(FromFinalized(rec)); err != nil {
			_ = enc.Close()
			return written, fmt.Errorf("failed to encode record %s: %w", rec.FinalizedID, err)
		}
		written++
	}

	// Close encoder to flush
	if err := enc.Close(); err != nil {
		return written, fmt.Errorf("failed to close encoder: %w", err)
	}

	return written, nil
}

// Read decompresses an archive and verifies every record.
func Read(r io.Reader) ([]*models.FinalizedRFP, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	var out []*models.FinalizedRFP
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for line := 1; scanner.Scan(); line++ {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
		}
		f := rec.Finalized()
		if err := snapshot.VerifyChecksum(f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	return out, nil
}

// Export writes every finalized record of an organization to a new archive
// file in dir and returns its path.
func Export(ctx context.Context, rfps store.RFPStore, orgID uuid.UUID, dir string) (string, error) {
	records, err := rfps.ListFinalized(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to list finalized rfps: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(dir, fmt.Sprintf("%s-%d%s", orgID, time.Now().UnixMilli(), Extension))
	dst, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	written, err := Write(dst, records)
	if err != nil {
		if closeErr := dst.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close destination during error cleanup")
		}
		os.Remove(archivePath) // Clean up partial file
		return "", err
	}

	if err := dst.Close(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	telemetry.GetMetrics().ArchivedSnapshots.Add(ctx, written)

	log.Info().
		Str("org_id", orgID.String()).
		Int64("records", written).
		Int64("compressed_bytes", info.Size()).
		Str("archive_path", archivePath).
		Msg("Finalized snapshots archived with zstd compression")

	return archivePath, nil
}

// ReadFile reads an archive file.
func ReadFile(path string) ([]*models.FinalizedRFP, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer src.Close()

	return Read(src)
}

// Prune removes archive files older than the retention period.
func Prune(archiveDir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		log.Debug().Msg("Archive pruning disabled (retentionDays <= 0)")
		return 0, nil
	}

	if _, err := os.Stat(archiveDir); os.IsNotExist(err) {
		log.Debug().Str("archive_dir", archiveDir).Msg("Archive directory does not exist, nothing to prune")
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read archive directory: %w", err)
	}

	deletedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warn().
				Err(err).
				Str("file", entry.Name()).
				Msg("Failed to get file info, skipping")
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			filePath := filepath.Join(archiveDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				log.Warn().
					Err(err).
					Str("file", filePath).
					Msg("Failed to delete old archive file")
				continue
			}
			deletedCount++
		}
	}

	if deletedCount > 0 {
		log.Info().
			Str("archive_dir", archiveDir).
			Int("deleted_files", deletedCount).
			Msg("Archive pruning completed")
	}

	return deletedCount, nil
}

func hasExtension(name string) bool {
	return len(name) > len(Extension) && name[len(name)-len(Extension):] == Extension
}
