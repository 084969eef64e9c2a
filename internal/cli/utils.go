// Package cli provides output helpers for the docqa command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates an output format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// UploadDateLayout is the upload_date format shared with the HTTP API.
const UploadDateLayout = "2006-01-02 15:04:05"

// FileEntry is one row of a file listing.
type FileEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UploadDate string `json:"upload_date"`
}

// FileEntries converts registry documents to listing rows.
func FileEntries(docs []*models.Document) []FileEntry {
	out := make([]FileEntry, len(docs))
	for i, d := range docs {
		out[i] = FileEntry{ID: d.ID, Name: d.Name, UploadDate: d.CreatedAt.Format(UploadDateLayout)}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n\n", answer.Text)
	ordinals := make([]string, len(answer.Evidence))
	for i, o := range answer.Evidence {
		ordinals[i] = fmt.Sprint(o)
	}
	fmt.Fprintf(w, "[%s] evidence units: %s\n", answer.Mode, strings.Join(ordinals, ", "))
	return nil
}

// WriteFiles writes a file listing to w in the given format.
func WriteFiles(w io.Writer, files []FileEntry, format OutputFormat) error {
	if format == OutputJSON {
		if files == nil {
			files = []FileEntry{}
		}
		return writeJSON(w, files)
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "No files uploaded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPLOADED\tNAME")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.UploadDate, utils.Truncate(f.Name, 60))
	}
	return tw.Flush()
}

// PrintAnswer prints an answer to stdout as text.
func PrintAnswer(answer *models.Answer) {
	_ = WriteAnswer(os.Stdout, answer, OutputText)
}

// JoinArgs joins positional args with spaces so multi-word questions work with or
// without shell quoting.
func JoinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// ReorderArgs moves flags that follow positional arguments to the front so that
// flag.Parse sees them: "docqa ask what is this --id x" parses --id.
func ReorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}
