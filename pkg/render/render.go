// Package render prints task lists and study plans.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/studyplan/pkg/model"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"

	emptyMessage = "No study tasks available!"
)

var ErrUnknownFormat = errors.New("unknown output format")

// PlanRow is the serialized form of a plan entry.
type PlanRow struct {
	Subject string `json:"subject" yaml:"subject"`
	Date    string `json:"date" yaml:"date"`
	Hours   int    `json:"hours" yaml:"hours"`
}

func newGrid(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetRowLine(true)
	return table
}

// Tasks prints tasks as a grid.
func Tasks(w io.Writer, tasks []model.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}

	table := newGrid(w, []string{"Subject", "Deadline", "Hours Required", "Priority"})
	for _, t := range tasks {
		table.Append([]string{
			t.Subject,
			t.Deadline.Format(model.DateLayout),
			strconv.Itoa(t.HoursRequired),
			strconv.Itoa(t.Priority),
		})
	}
	table.Render()
	return nil
}

// Plan prints a study plan in the given format.
func Plan(w io.Writer, plan []model.Entry, format string) error {
	rows := make([]PlanRow, 0, len(plan))
	for _, e := range plan {
		rows = append(rows, PlanRow{Subject: e.Subject, Date: e.Day(), Hours: e.Hours})
	}

	switch format {
	case FormatTable, "":
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, emptyMessage)
			return err
		}
		table := newGrid(w, []string{"Subject", "Date", "Hours Allocated"})
		for _, r := range rows {
			table.Append([]string{r.Subject, r.Date, strconv.Itoa(r.Hours)})
		}
		table.Render()
		return nil
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(rows); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w %q (want table, json or yaml)", ErrUnknownFormat, format)
	}
}
