package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/rfpcore/internal/archive"
	"github.com/wolfeidau/rfpcore/internal/models"
)

type ArchiveCmd struct {
	Export ArchiveExportCmd `cmd:"" help:"Write an organization's snapshots to a compressed archive"`
	Read   ArchiveReadCmd   `cmd:"" help:"List the snapshots held in an archive file"`
	Prune  ArchivePruneCmd  `cmd:"" help:"Remove archives older than the retention period"`
}

type ArchiveExportCmd struct {
	Org string `arg:"" help:"organization id"`
	Dir string `help:"archive directory" default:"./archive" env:"RFP_ARCHIVE_DIR"`
}

func (c *ArchiveExportCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var path string
	err = b.Run(ctx, "archive.export", func(ctx context.Context) error {
		path, err = archive.Export(ctx, b.RFPs, org, c.Dir)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}

type ArchiveReadCmd struct {
	File string `arg:"" help:"archive file" type:"existingfile"`
}

func (c *ArchiveReadCmd) Run(globals *Globals) error {
	recs, err := archive.ReadFile(c.File)
	if err != nil {
		return err
	}

	printArchive(recs)
	return nil
}

func printArchive(recs []*models.FinalizedRFP) {
	fmt.Printf("%-36s  %-36s  %-16s  %s\n", "FINALIZED ID", "ORGANIZATION", "CHECKSUM", "CREATED")
	fmt.Println(strings.Repeat("─", 115))
	for _, r := range recs {
		fmt.Printf("%-36s  %-36s  %016x  %s\n", r.FinalizedID, r.OrgID, r.Checksum, formatTime(r.CreatedAt))
	}
}

type ArchivePruneCmd struct {
	Dir           string `help:"archive directory" default:"./archive" env:"RFP_ARCHIVE_DIR"`
	RetentionDays int    `help:"days to keep archives" default:"30" env:"RFP_ARCHIVE_RETENTION_DAYS"`
}

func (c *ArchivePruneCmd) Run(globals *Globals) error {
	n, err := archive.Prune(c.Dir, c.RetentionDays)
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d archives\n", n)
	return nil
}
