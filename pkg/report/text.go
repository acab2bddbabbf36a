package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	headerColor    = color.New(color.Bold)
	originalColor  = color.New(color.FgGreen)
	duplicateColor = color.New(color.FgRed)
	noticeColor    = color.New(color.FgYellow)
)

// writeText prints one block per group, the original marked with "ls" and its
// duplicates with "rm", followed by a summary line. Duplicates kept below a
// preferred path are listed with "ls" as well.
func (r *Report) writeText(w io.Writer) error {
	tw := &textWriter{w: w}

	for _, g := range r.Groups {
		size := g.Original.Size
		label := "Duplicate(s)"
		if g.Kind == "directory" {
			label = fmt.Sprintf("Duplicate directories, %d files each", g.Original.Files)
		}

		tw.printf(headerColor, "# %s (%s):\n", label, humanize.IBytes(uint64(max(size, 0))))
		tw.printf(originalColor, "    ls %s\n", quote(g.Original.Path))
		for _, d := range g.Duplicates {
			if d.Keep {
				tw.printf(originalColor, "    ls %s\n", quote(d.Path))
				continue
			}
			tw.printf(duplicateColor, "    rm %s\n", quote(d.Path))
		}
		tw.printf(nil, "\n")
	}

	if len(r.Diagnostics) > 0 {
		tw.printf(noticeColor, "# %d attribute(s) could not be compared:\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			tw.printf(noticeColor, "    %s %s: %s\n", d.Attribute, quote(d.Path), d.Error)
		}
		tw.printf(nil, "\n")
	}

	s := r.Summary
	tw.printf(headerColor, "==> %s files scanned, %s groups (%s directories), %s duplicates, %s reclaimable\n",
		humanize.Comma(int64(s.TotalFiles)),
		humanize.Comma(int64(s.Groups)),
		humanize.Comma(int64(s.DirectoryGroups)),
		humanize.Comma(int64(s.Duplicates)),
		humanize.IBytes(uint64(max(s.ReclaimableBytes, 0))),
	)
	tw.printf(nil, "    rank-by %q, sort-by %q\n", r.Meta.RankBy, r.Meta.SortBy)

	return tw.err
}

// textWriter keeps the first write error so callers check once.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(col *color.Color, format string, args ...any) {
	if t.err != nil {
		return
	}
	if col == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
		return
	}
	_, t.err = col.Fprintf(t.w, format, args...)
}

func quote(path string) string {
	return "'" + path + "'"
}
