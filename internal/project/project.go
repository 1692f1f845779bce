// Package project provides sketch file handling and persistence.
package project

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"sketchpad/internal/constraint"
	"sketchpad/internal/sketch"

	"github.com/pkg/errors"
)

// CurrentVersion is the file format version written by Save.
const CurrentVersion = 1

// File represents a saved sketch (.sketch.json).
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Points      []sketch.Point    `json:"points"`
	Segments    []sketch.Segment  `json:"segments"`
	Arcs        []sketch.Arc      `json:"arcs,omitempty"`
	Constraints []ConstraintEntry `json:"constraints,omitempty"`
}

// ConstraintEntry is the serialized form of a constraint. Current is
// omitted for single-line kinds.
type ConstraintEntry struct {
	Kind    string           `json:"kind"`
	Base    sketch.SegmentID `json:"base"`
	Current sketch.SegmentID `json:"current,omitempty"`
}

// New creates an empty sketch file.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// FromStore captures the current contents of a store and its registered
// constraints.
func FromStore(name string, store *sketch.Store, constraints []constraint.Constraint) *File {
	f := New(name)
	f.Points = store.Points()
	f.Segments = store.Segments()
	f.Arcs = store.Arcs()
	for _, c := range constraints {
		entry := ConstraintEntry{Kind: c.Kind.String(), Base: c.Base}
		if c.Kind.Lines() == 2 {
			entry.Current = c.Current
		}
		f.Constraints = append(f.Constraints, entry)
	}
	return f
}

// Load loads a sketch from a file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read sketch %s", path)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse sketch %s", path)
	}
	if f.Version > CurrentVersion {
		return nil, errors.Errorf("sketch %s has version %d, newest supported is %d", path, f.Version, CurrentVersion)
	}

	log.Printf("Project: loaded %s (%d points, %d segments, %d constraints)",
		path, len(f.Points), len(f.Segments), len(f.Constraints))
	return &f, nil
}

// Save saves the sketch to a file.
func (f *File) Save(path string) error {
	f.Version = CurrentVersion
	f.Modified = time.Now()
	if f.Created.IsZero() {
		f.Created = f.Modified
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write sketch %s", path)
	}
	log.Printf("Project: saved %s", path)
	return nil
}

// Build restores the sketch into a new store, keeping every saved ID, and
// returns the decoded constraints. References to missing points or
// segments are errors.
func (f *File) Build() (*sketch.Store, []constraint.Constraint, error) {
	store := sketch.NewStore()
	for _, p := range f.Points {
		if err := store.InsertPoint(p.ID, p.X, p.Y); err != nil {
			return nil, nil, err
		}
	}
	for _, seg := range f.Segments {
		if err := store.InsertSegment(seg); err != nil {
			return nil, nil, err
		}
	}
	for _, a := range f.Arcs {
		if err := store.InsertArc(a); err != nil {
			return nil, nil, err
		}
	}

	var constraints []constraint.Constraint
	for i, entry := range f.Constraints {
		kind, err := constraint.ParseKind(entry.Kind)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "constraint %d", i)
		}
		c, err := constraint.New(kind, entry.Base, entry.Current)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "constraint %d", i)
		}
		for _, id := range c.Segments() {
			if _, ok := store.Segment(id); !ok {
				return nil, nil, errors.Wrapf(sketch.ErrUnknownSegment, "constraint %d references segment %d", i, id)
			}
		}
		constraints = append(constraints, c)
	}
	return store, constraints, nil
}
