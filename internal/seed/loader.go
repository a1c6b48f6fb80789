package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hackfest-platform/registration-engine/internal/models"
	"github.com/hackfest-platform/registration-engine/internal/storage"
)

// seedFile represents the YAML structure of a seed file
type seedFile struct {
	Groups []groupEntry `yaml:"groups"`
	Titles []string     `yaml:"titles"`
}

// groupEntry represents one group in the seed file
type groupEntry struct {
	Number string `yaml:"number"`
	Secret string `yaml:"secret"`
}

// Apply loads groups and titles from a YAML file into the store.
// Existing records are left untouched, so re-running a seed never
// resets an assignment flag. Safe to call on every startup.
func Apply(ctx context.Context, store storage.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	groupsAdded := 0
	for _, entry := range sf.Groups {
		if entry.Number == "" || entry.Secret == "" {
			return fmt.Errorf("seed group requires number and secret: %+v", entry)
		}

		group := models.NewGroup(entry.Number, entry.Secret)
		if err := store.CreateGroup(ctx, group); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("failed to seed group %s: %w", entry.Number, err)
		}
		groupsAdded++
	}

	titlesAdded := 0
	for _, title := range sf.Titles {
		if title == "" {
			return fmt.Errorf("seed title must not be empty")
		}

		if err := store.CreateTitle(ctx, models.NewTitle(title)); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("failed to seed title %q: %w", title, err)
		}
		titlesAdded++
	}

	slog.Info("seed applied",
		"file", path,
		"groups_added", groupsAdded,
		"titles_added", titlesAdded,
		"groups_total", len(sf.Groups),
		"titles_total", len(sf.Titles),
	)

	return nil
}
