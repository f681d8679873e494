package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/util"
)

// Heading is a TODO heading that carries a deadline.
type Heading struct {
	Subject  string
	Deadline time.Time
	Effort   time.Duration
	Tags     []string
	Source   string
}

var (
	todoRegex     = regexp.MustCompile(`^\*+\s+TODO\s+(?:\[#[A-Z]\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	headingRegex  = regexp.MustCompile(`^\*+\s`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	effortRegex   = regexp.MustCompile(`(?i)^:Effort:\s+(\d+)(?::(\d{2}))?\s*$`)
)

func parseFile(filePath string) ([]Heading, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, filePath)
}

// ParseFiles parses multiple Org-mode files and returns their headings.
func ParseFiles(filePaths []string) ([]Heading, error) {
	var all []Heading
	for _, filePath := range filePaths {
		hs, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		all = append(all, hs...)
	}
	return all, nil
}

// Parse collects TODO headings that have a DEADLINE. An :Effort: property
// (H or H:MM) sets the estimate.
func Parse(r io.Reader, source string) ([]Heading, error) {
	scanner := bufio.NewScanner(r)
	var headings []Heading
	var current *Heading

	flush := func() {
		if current != nil && current.Subject != "" && !current.Deadline.IsZero() {
			headings = append(headings, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if headingRegex.MatchString(line) {
			flush()
			if m := todoRegex.FindStringSubmatch(line); m != nil {
				current = &Heading{Subject: strings.TrimSpace(m[1]), Source: source}
				if m[2] != "" {
					current.Tags = strings.Split(strings.Trim(m[2], ":"), ":")
				}
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			if d, err := model.ParseDate(m[1]); err == nil {
				current.Deadline = d
			}
		} else if m := effortRegex.FindStringSubmatch(line); m != nil {
			h, _ := strconv.Atoi(m[1])
			mins := 0
			if m[2] != "" {
				mins, _ = strconv.Atoi(m[2])
			}
			current.Effort = time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return headings, nil
}

// FilterHeadings keeps headings carrying tag.
func FilterHeadings(headings []Heading, tag string) []Heading {
	var filtered []Heading
	for _, h := range headings {
		for _, t := range h.Tags {
			if t == tag {
				filtered = append(filtered, h)
				break
			}
		}
	}
	return filtered
}

// StudyTask converts h, falling back to defaultHours without an Effort.
func (h Heading) StudyTask(defaultHours int) (model.Task, error) {
	if h.Subject == "" {
		return model.Task{}, fmt.Errorf("%s: heading has no title", h.Source)
	}
	hours := defaultHours
	if h.Effort > 0 {
		hours = util.WholeHours(h.Effort)
	}
	return model.Task{Subject: h.Subject, Deadline: h.Deadline, HoursRequired: hours}, nil
}
