package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/pipeline"
	"github.com/roach88/marrow/internal/track"
)

// changesetFile is the YAML shape of a pending-write description.
//
// Rows list one entry per contributing tracked object; entry maps are
// keyed by property name on that entity type. depends_on wires a row's
// foreign key to another row's generated primary key by row id.
type changesetFile struct {
	Rows []changesetRow `yaml:"rows"`
}

type changesetRow struct {
	ID        string           `yaml:"id,omitempty"`
	Table     string           `yaml:"table"`
	Entries   []changesetEntry `yaml:"entries"`
	DependsOn []changesetDep   `yaml:"depends_on,omitempty"`
}

type changesetEntry struct {
	Entity   string         `yaml:"entity"`
	State    string         `yaml:"state"`
	Current  map[string]any `yaml:"current,omitempty"`
	Original map[string]any `yaml:"original,omitempty"`
	Modified []string       `yaml:"modified,omitempty"`
}

type changesetDep struct {
	Row        string `yaml:"row"`
	ForeignKey string `yaml:"foreign_key"`
}

// LoadChangeset reads a YAML changeset and materializes it as a batch of
// grouped write rows over the model.
func LoadChangeset(path string, mdl *model.Model) (*pipeline.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changeset: %w", err)
	}
	var file changesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse changeset: %w", err)
	}
	if len(file.Rows) == 0 {
		return nil, fmt.Errorf("changeset has no rows")
	}

	batch := pipeline.NewBatch(mdl)
	byID := make(map[string]*pipeline.Row)

	for i, rowSpec := range file.Rows {
		records := make([]*track.ChangeRecord, 0, len(rowSpec.Entries))
		for _, entrySpec := range rowSpec.Entries {
			rec, err := buildRecord(entrySpec)
			if err != nil {
				return nil, fmt.Errorf("row %d (%s): %w", i+1, rowSpec.Table, err)
			}
			records = append(records, rec)
		}
		row, err := batch.AddRow(rowSpec.Table, records...)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if rowSpec.ID != "" {
			if _, dup := byID[rowSpec.ID]; dup {
				return nil, fmt.Errorf("row %d: duplicate row id %q", i+1, rowSpec.ID)
			}
			byID[rowSpec.ID] = row
		}
	}

	// Second pass: dependencies may point forward.
	for i, rowSpec := range file.Rows {
		row := batch.Rows()[i]
		for _, dep := range rowSpec.DependsOn {
			parent, ok := byID[dep.Row]
			if !ok {
				return nil, fmt.Errorf("row %d: depends_on references unknown row id %q", i+1, dep.Row)
			}
			if err := row.DependOn(parent, dep.ForeignKey); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
	}

	return batch, nil
}

func buildRecord(spec changesetEntry) (*track.ChangeRecord, error) {
	if spec.Entity == "" {
		return nil, fmt.Errorf("entry is missing entity type")
	}
	state, err := track.ParseEntryState(spec.State)
	if err != nil {
		return nil, err
	}
	rec := track.NewChangeRecord(spec.Entity, state)
	for property, v := range spec.Original {
		rec.SetOriginal(property, normalizeYAMLValue(v))
	}
	for property, v := range spec.Current {
		rec.SetCurrent(property, normalizeYAMLValue(v))
	}
	for _, property := range spec.Modified {
		rec.MarkModified(property)
	}
	return rec, nil
}

// normalizeYAMLValue widens yaml.v3's int to int64 so changeset values
// compare equal to driver-returned keys.
func normalizeYAMLValue(v any) any {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v
}
