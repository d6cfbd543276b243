package graphio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fieldforge/fieldforge/nodes"
)

// Document is the file form of a whole assembly: one minimal graph per
// function plus the entry designation.
type Document struct {
	Entry  uint32  `json:"entry"`
	Models []Graph `json:"models"`
}

// SerializeAssembly projects every function of the assembly.
func SerializeAssembly(a *nodes.Assembly) Document {
	doc := Document{}
	if entry := a.AssemblyModel(); entry != nil {
		doc.Entry = uint32(entry.ResourceID())
	}
	a.Functions(func(m *nodes.Model) bool {
		doc.Models = append(doc.Models, SerializeMinimal(m))
		return true
	})
	return doc
}

// BuildAssembly materializes a document into a fresh assembly.
func BuildAssembly(doc Document) (*nodes.Assembly, error) {
	assembly := nodes.NewAssembly()
	for _, graph := range doc.Models {
		m := nodes.NewModel(nodes.ResourceID(graph.Model.ResourceID), graph.Model.Name)
		if graph.Model.DisplayName != nil {
			m.SetDisplayName(*graph.Model.DisplayName)
		}
		m.CreateBeginEnd()
		if _, err := Apply(m, graph, true); err != nil {
			return nil, fmt.Errorf("importing function %d: %w", graph.Model.ResourceID, err)
		}
		if err := assembly.AddModel(m); err != nil {
			return nil, err
		}
	}
	if doc.Entry != 0 {
		if err := assembly.SetAssemblyModel(nodes.ResourceID(doc.Entry)); err != nil {
			return nil, err
		}
	}
	return assembly, nil
}

// LoadDocument reads a document file.
func LoadDocument(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading document: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

// SaveDocument writes a document file with stable formatting.
func SaveDocument(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
