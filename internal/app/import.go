package app

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/philo-kim/moniterdc-sub001/internal/cli"
	"github.com/philo-kim/moniterdc-sub001/internal/db"
	payloadschema "github.com/philo-kim/moniterdc-sub001/schema"
)

type importBatch struct {
	perceptions []db.Perception
	worldviews  []db.Worldview
	scanned     int
	invalid     int
}

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	path := fs.String("path", "", "File or directory of .json/.jsonl records")
	kind := fs.String("kind", kindPerception, "Record kind: perception or worldview")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories")
	skipInvalid := fs.Bool("skip-invalid", false, "Import valid records even when some records are invalid")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "--path is required")
		return 2
	}
	recordKind, err := parseKind(*kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	files, err := collectRecordFiles(*path, *recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import setup failed: %v\n", err)
		return 1
	}

	batch := loadImportBatch(files, recordKind)
	if batch.invalid > 0 && !*skipInvalid {
		fmt.Fprintf(os.Stderr, "Import aborted: %d invalid record(s); rerun with --skip-invalid to import the rest\n", batch.invalid)
		return 1
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "import", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	var upserted int64
	switch recordKind {
	case kindWorldview:
		upserted, err = rt.pool.UpsertWorldviews(ctx, batch.worldviews)
	default:
		upserted, err = rt.pool.UpsertPerceptions(ctx, batch.perceptions)
	}
	if err != nil {
		rt.logger.Error().Err(err).Str("kind", recordKind).Msg("import failed")
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		return 1
	}

	rt.logger.Info().
		Str("kind", recordKind).
		Int("files", len(files)).
		Int("scanned", batch.scanned).
		Int("invalid", batch.invalid).
		Int64("upserted", upserted).
		Msg("import completed")
	fmt.Printf("import kind=%s files=%d scanned=%d invalid=%d upserted=%d\n", recordKind, len(files), batch.scanned, batch.invalid, upserted)
	return 0
}

func loadImportBatch(files []string, kind string) importBatch {
	var batch importBatch
	for _, path := range files {
		records, err := readRecords(path)
		if err != nil {
			batch.invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		for _, rec := range records {
			batch.scanned++
			switch kind {
			case kindWorldview:
				item, err := payloadschema.ValidateWorldviewPayload(rec.Raw)
				if err != nil {
					batch.invalid++
					fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", rec, err)
					continue
				}
				batch.worldviews = append(batch.worldviews, worldviewRow(item))
			default:
				item, err := payloadschema.ValidatePerceptionPayload(rec.Raw)
				if err != nil {
					batch.invalid++
					fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", rec, err)
					continue
				}
				batch.perceptions = append(batch.perceptions, perceptionRow(item))
			}
		}
	}
	return batch
}

func perceptionRow(item *payloadschema.Perception) db.Perception {
	return db.Perception{
		ID:                  strings.ToLower(strings.TrimSpace(item.ID)),
		ContentID:           item.ContentID,
		DeepBeliefs:         db.StringList(nonNil(item.DeepBeliefs)),
		ImplicitAssumptions: db.StringList(nonNil(item.ImplicitAssumptions)),
		Keywords:            db.StringList(nonNil(item.Keywords)),
		Mechanisms:          db.StringList(nonNil(item.Mechanisms)),
		Actor:               nullableJSON(item.Actor),
		Embedding:           db.NewVector(item.Embedding),
	}
}

func worldviewRow(item *payloadschema.Worldview) db.Worldview {
	row := db.Worldview{
		ID:            strings.ToLower(strings.TrimSpace(item.ID)),
		Title:         strings.TrimSpace(item.Title),
		Frame:         nullableJSON(item.Frame),
		Level:         item.Level,
		Version:       1,
		Archived:      item.Archived,
		Embedding:     db.NewVector(item.Embedding),
		PerceptionIDs: db.StringList{},
	}
	if item.Version != nil {
		row.Version = *item.Version
	}
	if item.ParentWorldviewID != nil {
		parent := strings.ToLower(strings.TrimSpace(*item.ParentWorldviewID))
		row.ParentWorldviewID = &parent
	}
	return row
}

func nullableJSON(raw []byte) db.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return db.JSON(trimmed)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
