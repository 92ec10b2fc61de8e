// Package seed imports children and chores from a YAML or JSON file so a
// fresh deployment starts with a household already set up.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
)

const maxSeedBytes = 1 << 20

// File is the seed document. JSON is accepted too since it is valid YAML.
type File struct {
	Children []Child `yaml:"children"`
	// Chores not assigned to any child.
	Chores []Chore `yaml:"chores"`
}

type Child struct {
	Name            string  `yaml:"name"`
	Age             int     `yaml:"age"`
	WeeklyAllowance float64 `yaml:"weekly_allowance"`
	Chores          []Chore `yaml:"chores"`
}

type Chore struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Value       float64 `yaml:"value"`
}

// Result counts what an import did.
type Result struct {
	ChildrenCreated int
	ChildrenSkipped int
	ChoresCreated   int
	ChoresSkipped   int
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &f, nil
}

// Load reads a seed document from a local path or an http(s) URL.
func Load(ctx context.Context, path string) (*File, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		data, err = fetch(ctx, path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed data from %s: %w", path, err)
	}
	return Parse(data)
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSeedBytes))
}

// ImportFromPath loads path and imports it. See Import.
func ImportFromPath(ctx context.Context, tracker service.TrackerService, path string) (*Result, error) {
	f, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return Import(ctx, tracker, f)
}

// Import creates the children and chores in f. Children are matched by name
// and chores by name and assignee, so importing the same file twice creates
// nothing the second time. Individual failures are logged and skipped.
func Import(ctx context.Context, tracker service.TrackerService, f *File) (*Result, error) {
	children, err := tracker.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	chores, err := tracker.ListChores(ctx, nil)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Child, len(children))
	for _, c := range children {
		byName[strings.ToLower(c.Name)] = c
	}
	existingChores := make(map[string]bool, len(chores))
	for _, c := range chores {
		existingChores[choreKey(c.Name, c.AssignedTo)] = true
	}

	res := &Result{}
	importChore := func(c Chore, childID string) {
		key := choreKey(c.Name, childID)
		if existingChores[key] {
			res.ChoresSkipped++
			return
		}
		if _, err := tracker.CreateChore(ctx, &models.Chore{
			Name:        c.Name,
			Description: c.Description,
			Value:       c.Value,
			AssignedTo:  childID,
		}); err != nil {
			slog.WarnContext(ctx, "failed to import chore", "chore", c.Name, logging.Err(err))
			res.ChoresSkipped++
			return
		}
		existingChores[key] = true
		res.ChoresCreated++
	}

	for _, sc := range f.Children {
		child, ok := byName[strings.ToLower(sc.Name)]
		if ok {
			res.ChildrenSkipped++
		} else {
			child, err = tracker.CreateChild(ctx, &models.Child{
				Name:            sc.Name,
				Age:             sc.Age,
				WeeklyAllowance: sc.WeeklyAllowance,
			})
			if err != nil {
				slog.WarnContext(ctx, "failed to import child", "child", sc.Name, logging.Err(err))
				res.ChildrenSkipped++
				res.ChoresSkipped += len(sc.Chores)
				continue
			}
			byName[strings.ToLower(child.Name)] = child
			res.ChildrenCreated++
			slog.InfoContext(ctx, "imported child", logging.ChildID(child.ID))
		}
		for _, c := range sc.Chores {
			importChore(c, child.ID)
		}
	}
	for _, c := range f.Chores {
		importChore(c, "")
	}
	return res, nil
}

func choreKey(name, childID string) string {
	return strings.ToLower(name) + "\x00" + childID
}
