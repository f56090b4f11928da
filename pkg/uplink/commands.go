package uplink

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidCommands = errors.New("uplink: command file must be a mapping of field name to value")

// Command sets one writable field from operator text
type Command struct {
	Name  string
	Value string
}

// LoadCommands reads a YAML mapping of field name to value. Sequences are
// joined with commas, so `adcs.cmd_vec: [0, 0, 1]` reads as "0,0,1".
// Commands keep their order in the file.
func LoadCommands(path string) ([]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cmds, err := ParseCommands(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// ParseCommands decodes a command document
func ParseCommands(data []byte) ([]Command, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrInvalidCommands
	}

	m := doc.Content[0]
	cmds := make([]Command, 0, len(m.Content)/2)
	seen := make(map[string]struct{}, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidCommands, key.Line)
		}
		if _, dup := seen[key.Value]; dup {
			return nil, fmt.Errorf("%w: %s set twice (line %d)", ErrDuplicateIndex, key.Value, key.Line)
		}
		seen[key.Value] = struct{}{}

		text, err := nodeText(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		cmds = append(cmds, Command{Name: key.Value, Value: text})
	}
	return cmds, nil
}

func nodeText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, len(n.Content))
		for i, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("%w: nested value at line %d", ErrInvalidCommands, c.Line)
			}
			parts[i] = c.Value
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("%w: unsupported value at line %d", ErrInvalidCommands, n.Line)
	}
}
