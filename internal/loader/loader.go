// Package loader reads story files: YAML documents listing the cards and
// characters of a story.
package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/models"
)

//go:embed story.schema.json
var storySchemaJSON string

const schemaURL = "https://github.com/tatianab/selma/story.schema.json"

var storySchema = jsonschema.MustCompileString(schemaURL, storySchemaJSON)

// Target is what a story is registered into.
type Target interface {
	RegisterCard(card models.EventCard) error
	RegisterCharacter(def models.CharacterDef) error
}

// Validator reports dangling references once all stories are registered.
type Validator interface {
	Validate() error
}

// Parse validates data against the story schema and decodes it. source
// names the document in errors.
func Parse(data []byte, source string) (*models.Story, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("invalid YAML: %v", err), err).WithSourceName(source)
	}
	if doc == nil {
		return &models.Story{}, nil
	}
	// The schema validator works on JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: convert to JSON: %w", source, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var inst any
	if err := dec.Decode(&inst); err != nil {
		return nil, fmt.Errorf("%s: convert to JSON: %w", source, err)
	}
	if err := storySchema.Validate(inst); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("story does not match schema: %v", err), err).WithSourceName(source)
	}

	var story models.Story
	if err := yaml.Unmarshal(data, &story); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("invalid story: %v", err), err).WithSourceName(source)
	}
	for _, card := range story.Cards {
		if card.Text == "" {
			continue
		}
		if _, err := template.New(card.Name).Parse(card.Text); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("invalid card text: %v", err), err).WithSourceName(card.Name)
		}
	}
	return &story, nil
}

// LoadFile reads and parses one story file.
func LoadFile(path string) (*models.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Apply registers the story's cards, then its characters, in file order.
func Apply(t Target, story *models.Story) error {
	for _, card := range story.Cards {
		if err := t.RegisterCard(card); err != nil {
			return err
		}
	}
	for _, def := range story.Characters {
		if err := t.RegisterCharacter(def); err != nil {
			return err
		}
	}
	return nil
}

// LoadInto loads every file into t in order. When v is not nil it is
// validated after the last file, so cards may name next cards defined in a
// later file.
func LoadInto(t Target, v Validator, paths ...string) ([]*models.Story, error) {
	var stories []*models.Story
	for _, path := range paths {
		story, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := Apply(t, story); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		stories = append(stories, story)
	}
	if v != nil {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return stories, nil
}
