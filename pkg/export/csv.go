// Package export writes processed thread records to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/mailpilot-ai/mailpilot/pkg/assistant"
)

var csvHeader = []string{"id", "sender", "subject", "date", "summary", "replied", "draftReply", "priority", "threadId"}

type Exporter struct {
	logger       *log.Logger
	pathTemplate string
	now          func() time.Time
}

// NewExporter builds an exporter. pathTemplate must contain one %s verb for
// the run timestamp, e.g. "output/emails_%s.csv".
func NewExporter(logger *log.Logger, pathTemplate string) *Exporter {
	return &Exporter{
		logger:       logger,
		pathTemplate: pathTemplate,
		now:          time.Now,
	}
}

// Export writes records to filename, creating directories as needed. An
// empty filename gets the timestamped default path. Returns the written
// path.
func (e *Exporter) Export(records []assistant.ResultRecord, filename string) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no data to export")
	}

	if filename == "" {
		filename = fmt.Sprintf(e.pathTemplate, e.now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, "could not create output directory")
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return "", errors.Wrap(err, "could not create output file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", errors.Wrap(err, "could not write header")
	}
	for _, r := range records {
		row := []string{
			r.ID, r.Sender, r.Subject, r.Date, r.Summary,
			strconv.FormatBool(r.Replied), r.DraftReply, string(r.Priority), r.ThreadID,
		}
		if err := w.Write(row); err != nil {
			return "", errors.Wrap(err, "could not write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "could not flush output")
	}

	e.logger.Info("exported results", "path", filename, "records", len(records))
	return filename, nil
}
