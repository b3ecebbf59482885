// internal/deals/source.go
package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"drift-workers/internal/models"
)

// Source supplies the initial deal set of a session.
type Source interface {
	Name() string
	LoadDeals(ctx context.Context) ([]models.Deal, error)
}

// FileSource reads a JSON seed file holding either an array of deals or an
// object with a "deals" array.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string { return "file:" + f.Path }

func (f *FileSource) LoadDeals(ctx context.Context) ([]models.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return DecodeDeals(data)
}

// DecodeDeals parses a seed document.
func DecodeDeals(data []byte) ([]models.Deal, error) {
	var list []models.Deal
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Deals []models.Deal `json:"deals"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode deals: %w", err)
	}
	if wrapped.Deals == nil {
		return nil, fmt.Errorf("decode deals: no \"deals\" array")
	}
	return wrapped.Deals, nil
}

// StaticSource serves a fixed slice.
type StaticSource []models.Deal

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) LoadDeals(context.Context) ([]models.Deal, error) {
	out := make([]models.Deal, len(s))
	for i, d := range s {
		out[i] = d.Clone()
	}
	return out, nil
}
