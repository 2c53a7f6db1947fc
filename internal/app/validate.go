package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	payloadschema "github.com/philo-kim/moniterdc-sub001/schema"
)

type validateResult struct {
	Files   int
	Scanned int
	Valid   int
	Invalid int
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	path := fs.String("path", "testdata", "File or directory of .json/.jsonl records")
	kind := fs.String("kind", kindPerception, "Record kind: perception or worldview")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	recordKind, err := parseKind(*kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	files, err := collectRecordFiles(strings.TrimSpace(*path), *recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
		return 1
	}

	result := validateFiles(files, recordKind)

	fmt.Printf(
		"validate kind=%s files=%d scanned=%d valid=%d invalid=%d path=%s\n",
		recordKind,
		result.Files,
		result.Scanned,
		result.Valid,
		result.Invalid,
		strings.TrimSpace(*path),
	)

	if result.Scanned == 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: no records found under %s\n", strings.TrimSpace(*path))
		return 1
	}
	if result.Invalid > 0 {
		return 1
	}
	return 0
}

func validateFiles(files []string, kind string) validateResult {
	result := validateResult{Files: len(files)}
	for _, path := range files {
		records, err := readRecords(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		for _, rec := range records {
			result.Scanned++
			if err := validateRecord(kind, rec.Raw); err != nil {
				result.Invalid++
				fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", rec, err)
				continue
			}
			result.Valid++
		}
	}
	return result
}

func validateRecord(kind string, raw json.RawMessage) error {
	var err error
	switch kind {
	case kindWorldview:
		_, err = payloadschema.ValidateWorldviewPayload(raw)
	default:
		_, err = payloadschema.ValidatePerceptionPayload(raw)
	}
	return err
}
