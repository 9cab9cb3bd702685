package dataset

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Split binds a manifest file to the output directory it populates.
type Split struct {
	Manifest string
	Name     string
}

// DefaultSplits lists the FGVC-Aircraft variant manifests in processing order.
var DefaultSplits = []Split{
	{Manifest: "images_variant_train.txt", Name: "train"},
	{Manifest: "images_variant_val.txt", Name: "val"},
	{Manifest: "images_variant_test.txt", Name: "test"},
}

// Record is one manifest line. Err is set when the id or label cannot be used
// as a path element; such records are skipped when the split is written.
type Record struct {
	ID    string
	Label string
	Err   error
}

// ParseManifest reads "<id> <label>" lines. Label tokens are joined with a
// single space and slashes become hyphens so the label is a valid directory
// name. Blank lines are ignored.
func ParseManifest(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.Errorf("manifest line %d: missing label for %q", line, fields[0])
		}
		rec := Record{
			ID:    fields[0],
			Label: SanitizeLabel(strings.Join(fields[1:], " ")),
		}
		if err := checkPathElement("id", rec.ID); err != nil {
			rec.Err = errors.Wrapf(err, "manifest line %d", line)
		} else if err := checkPathElement("label", rec.Label); err != nil {
			rec.Err = errors.Wrapf(err, "manifest line %d", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan manifest")
	}

	return records, nil
}

// SanitizeLabel replaces path separators in a class name.
func SanitizeLabel(label string) string {
	return strings.ReplaceAll(label, "/", "-")
}

func checkPathElement(kind, value string) error {
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return errors.Errorf("invalid %s %q", kind, value)
	}
	return nil
}
