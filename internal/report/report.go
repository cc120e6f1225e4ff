// Package report builds character reports: a read-side join of characters
// with their relations, rendered either as a PDF through a headless browser
// or as spreadsheet and CSV exports.
package report

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/example/screenplay/internal/domain"
)

// Source is the read side of the store the report is assembled from.
type Source interface {
	ListCharacters(ctx context.Context) ([]domain.Character, error)
	RelationsByIDs(ctx context.Context, ids []string) ([]domain.Relation, error)
}

// Entry is one character with its relation references expanded to names.
type Entry struct {
	Name       string
	Age        int
	Gender     domain.Gender
	Occupation string
	Relations  []string
	Photos     []domain.Photo
}

// RelationNames joins the resolved relation names the way every output shows them.
func (e Entry) RelationNames() string {
	return strings.Join(e.Relations, ", ")
}

// PhotoNames lists one photo per line, falling back to the URL's base name.
func (e Entry) PhotoNames() string {
	names := make([]string, 0, len(e.Photos))
	for _, p := range e.Photos {
		names = append(names, photoName(p))
	}
	return strings.Join(names, "\n")
}

// FirstPhoto returns nil when the character has no photos.
func (e Entry) FirstPhoto() *domain.Photo {
	if len(e.Photos) == 0 {
		return nil
	}
	p := e.Photos[0]
	return &p
}

func photoName(p domain.Photo) string {
	if p.Filename != "" {
		return p.Filename
	}
	return path.Base(p.URL)
}

// Assemble loads every character in store order and resolves its relation
// references with a single batched lookup. References whose target no longer
// exists are dropped silently; the remaining names keep reference order.
func Assemble(ctx context.Context, src Source) ([]Entry, error) {
	characters, err := src.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, c := range characters {
		for _, id := range c.Relations {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	byID := make(map[string]domain.Relation, len(ids))
	if len(ids) > 0 {
		relations, err := src.RelationsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load relations: %w", err)
		}
		for _, r := range relations {
			byID[r.ID] = r
		}
	}

	entries := make([]Entry, 0, len(characters))
	for _, c := range characters {
		names := make([]string, 0, len(c.Relations))
		for _, id := range c.Relations {
			if r, ok := byID[id]; ok {
				names = append(names, r.Name)
			}
		}
		entries = append(entries, Entry{
			Name:       c.Name,
			Age:        c.Age,
			Gender:     c.Gender,
			Occupation: c.Occupation,
			Relations:  names,
			Photos:     c.Photos,
		})
	}
	return entries, nil
}
