// Package taxonomy loads the read-only category tree that the batch
// ingestion runner walks. The tree is supplied as a yaml file of top-level
// categories, each holding the leaves listings are tagged against.
package taxonomy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/groupcart/catalog-cli/internal/model"
)

// Category is a top-level grouping of leaves.
type Category struct {
	Key    string               `yaml:"key"`
	Label  string               `yaml:"label"`
	Leaves []model.CategoryLeaf `yaml:"leaves"`
}

// Provider exposes the taxonomy to the rest of the pipeline.
type Provider interface {
	Categories() []Category
	Leaves() []model.CategoryLeaf
	Find(key string) (model.CategoryLeaf, bool)
}

type fileTaxonomy struct {
	categories []Category
	byKey      map[string]model.CategoryLeaf
}

type taxonomyFile struct {
	Categories []Category `yaml:"categories"`
}

// Load reads a taxonomy yaml file.
func Load(path string) (Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}
	return Parse(raw)
}

// Parse builds a Provider from raw yaml.
func Parse(raw []byte) (Provider, error) {
	var f taxonomyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal")
	}
	if len(f.Categories) == 0 {
		return nil, eris.New("taxonomy: no categories defined")
	}

	byKey := make(map[string]model.CategoryLeaf)
	for _, c := range f.Categories {
		for _, leaf := range c.Leaves {
			if leaf.Key == "" {
				return nil, eris.Errorf("taxonomy: leaf without key under category %s", c.Key)
			}
			if _, dup := byKey[leaf.Key]; dup {
				return nil, eris.Errorf("taxonomy: duplicate leaf key %s", leaf.Key)
			}
			byKey[leaf.Key] = leaf
		}
	}
	return &fileTaxonomy{categories: f.Categories, byKey: byKey}, nil
}

func (t *fileTaxonomy) Categories() []Category {
	return t.categories
}

func (t *fileTaxonomy) Leaves() []model.CategoryLeaf {
	var leaves []model.CategoryLeaf
	for _, c := range t.categories {
		leaves = append(leaves, c.Leaves...)
	}
	return leaves
}

func (t *fileTaxonomy) Find(key string) (model.CategoryLeaf, bool) {
	leaf, ok := t.byKey[key]
	return leaf, ok
}
