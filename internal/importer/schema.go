package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeImport is one node of an import file. Kind may be omitted below the
// root; it follows from the parent.
type NodeImport struct {
	Kind     string            `yaml:"kind,omitempty" json:"kind,omitempty"`
	Fields   map[string]string `yaml:"fields" json:"fields"`
	Children []NodeImport      `yaml:"children,omitempty" json:"children,omitempty"`
}

// Count returns the number of nodes in the subtree.
func (n *NodeImport) Count() int {
	c := 1
	for i := range n.Children {
		c += n.Children[i].Count()
	}
	return c
}

// LoadImportFile reads a YAML import file. JSON files parse as well.
func LoadImportFile(path string) (*NodeImport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImport(data)
}

func ParseImport(data []byte) (*NodeImport, error) {
	var root NodeImport
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &root, nil
}
