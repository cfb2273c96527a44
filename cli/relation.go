package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jinzhu/inflection"
)

type RelationType string

const (
	One2Many  RelationType = "one2many"
	Many2Many RelationType = "many2many"
)

// ErrUnsupportedRelation only has-many relations can be embedded in forms
var ErrUnsupportedRelation = errors.New("unsupported relation type")

type RelationInfo struct {
	FieldName string
	Target    string
	Alias     string
	Type      RelationType
}

// Spec returns the relation spec passed to EmbedRelation, e.g. `Pets as animals`
func (r RelationInfo) Spec() string {
	if r.Alias == "" {
		return r.FieldName
	}
	return r.FieldName + " as " + r.Alias
}

// ParseRelations parses relations like `Pets,Toys:Toy,Accounts:Account:wallets`.
// A missing target defaults to the singular of the field name.
func ParseRelations(rel string) ([]RelationInfo, error) {
	var rels []RelationInfo
	for _, r := range strings.Split(rel, ",") {
		parts := strings.Split(strings.TrimSpace(r), ":")
		if len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("relation format is invalid: %q", r)
		}

		info := RelationInfo{FieldName: exportedName(parts[0]), Type: One2Many}
		info.Target = inflection.Singular(info.FieldName)
		if len(parts) > 1 && parts[1] != "" {
			info.Target = exportedName(parts[1])
		}
		if len(parts) > 2 {
			switch RelationType(parts[2]) {
			case One2Many, Many2Many:
				info.Type = RelationType(parts[2])
			default:
				info.Alias = parts[2]
			}
		}
		rels = append(rels, info)
	}
	return rels, nil
}

// AddRelation adds has-many relation fields to the model file
func AddRelation(modelFile string, relations []RelationInfo, modelName string) error {
	content, err := os.ReadFile(modelFile)
	if err != nil {
		return err
	}

	var relLines []string
	for _, r := range relations {
		if r.Type == Many2Many {
			return fmt.Errorf("%w: %s %s", ErrUnsupportedRelation, modelName, r.FieldName)
		}
		relLines = append(relLines, fmt.Sprintf("\t%s []*%s", r.FieldName, r.Target))
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "}" {
			lines = append(lines[:i], append(relLines, lines[i:]...)...)
			break
		}
	}

	return os.WriteFile(modelFile, []byte(strings.Join(lines, "\n")), 0o644)
}
