// Package verify checks the exactly-once-execution invariant from worker
// log output: no task_id may appear in more than one task log line.
package verify

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Worker log lines look like:
//
//	workers-5   | task_id: 907be2f3-c633-444a-ae6d-0ccdd876e50a | Foo 907be2f3-...
//
// The leading field is the container label added by docker compose; the
// trailing field is free text. Anything that doesn't match this grammar is
// unrelated log chatter (sqlx commit warnings and the like) and is skipped.
var lineRE = regexp.MustCompile(`^([^|]*)\|\s*task_id:\s*([^|\s]+)\s*(?:\|\s*(.*))?$`)

// Entry is one parsed task log line.
type Entry struct {
	Label   string
	TaskID  string
	Message string
}

// ParseLine parses one log line. ok is false for lines that are not task
// log lines; those are not an error, just noise.
func ParseLine(line string) (Entry, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	return Entry{
		Label:   strings.TrimSpace(m[1]),
		TaskID:  m[2],
		Message: strings.TrimSpace(m[3]),
	}, true
}

// Duplicate records a task ID that appeared in more than one task log line.
type Duplicate struct {
	TaskID string
	// Count is the total number of occurrences, the first included.
	Count int
	// Lines holds the 1-based input line numbers of every occurrence.
	Lines []int
}

// Report summarizes one verification run.
type Report struct {
	LinesScanned int
	TaskLines    int
	UniqueIDs    int
	Duplicates   []Duplicate
}

// OK reports whether every task ran exactly once.
func (r *Report) OK() bool { return len(r.Duplicates) == 0 }

// Err returns nil for a clean report, or an error naming the duplicated IDs.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	ids := make([]string, len(r.Duplicates))
	for i, d := range r.Duplicates {
		ids[i] = fmt.Sprintf("%s (%d times)", d.TaskID, d.Count)
	}
	return fmt.Errorf("%d task id(s) executed more than once: %s", len(r.Duplicates), strings.Join(ids, ", "))
}

// Check scans worker log lines from r and accumulates every task ID seen.
// It always reads to end-of-input, so a single run reports all duplicates,
// not just the first.
func Check(r io.Reader) (*Report, error) {
	report := &Report{}
	occurrences := map[string][]int{}
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		report.LinesScanned++
		entry, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		report.TaskLines++
		if _, seen := occurrences[entry.TaskID]; !seen {
			order = append(order, entry.TaskID)
		}
		occurrences[entry.TaskID] = append(occurrences[entry.TaskID], report.LinesScanned)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}

	report.UniqueIDs = len(occurrences)
	for _, id := range order {
		if lines := occurrences[id]; len(lines) > 1 {
			report.Duplicates = append(report.Duplicates, Duplicate{
				TaskID: id,
				Count:  len(lines),
				Lines:  lines,
			})
		}
	}
	return report, nil
}
