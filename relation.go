package dynform

import (
	"regexp"

	"gorm.io/dynform/schema"
)

// RelationConfig how one form field embeds a has-many relation
type RelationConfig struct {
	// Field the form field the child forms are embedded under
	Field    string
	Relation *schema.Relationship
	// FormType the registered child form type, `<RelatedType>Form` unless overridden
	FormType string
	FormArgs []interface{}
	// Identifier the child form field holding the related primary key
	Identifier string
	// Disabled set by DisableField, the field is neither reconciled nor embedded anymore
	Disabled bool
}

// RelationConfigs the relation configurations of one form, in declaration order
type RelationConfigs struct {
	fields  []string
	configs map[string]*RelationConfig
}

// Get returns the configuration of a field
func (rcs *RelationConfigs) Get(field string) (*RelationConfig, bool) {
	if rcs == nil {
		return nil, false
	}
	cfg, ok := rcs.configs[field]
	return cfg, ok
}

// Fields returns the configured fields in declaration order
func (rcs *RelationConfigs) Fields() []string {
	if rcs == nil {
		return nil
	}
	return append([]string(nil), rcs.fields...)
}

func (rcs *RelationConfigs) Len() int {
	if rcs == nil {
		return 0
	}
	return len(rcs.fields)
}

// merge returns a copy holding cfg, a field declared again keeps its position
func (rcs *RelationConfigs) merge(cfg *RelationConfig) *RelationConfigs {
	merged := &RelationConfigs{configs: map[string]*RelationConfig{}}
	if rcs != nil {
		merged.fields = append(merged.fields, rcs.fields...)
		for field, c := range rcs.configs {
			merged.configs[field] = c
		}
	}

	if _, ok := merged.configs[cfg.Field]; !ok {
		merged.fields = append(merged.fields, cfg.Field)
	}
	merged.configs[cfg.Field] = cfg
	return merged
}

// Relations returns the relation configurations stored on a form
func Relations(f EmbeddableRelationForm) *RelationConfigs {
	if v, ok := f.Option(OptionName); ok {
		if rcs, ok := v.(*RelationConfigs); ok {
			return rcs
		}
	}
	return nil
}

var relationSpecRegexp = regexp.MustCompile(`(?i)^\s*(\w+)(?:\s+as\s+(\w+))?\s*$`)

// parseRelationSpec splits `Name` or `Name as alias` into the relation name and the form field
func parseRelationSpec(spec string, namer schema.Namer) (relation, field string, ok bool) {
	matches := relationSpecRegexp.FindStringSubmatch(spec)
	if matches == nil {
		return "", "", false
	}

	relation, field = matches[1], matches[2]
	if field == "" {
		field = namer.FormFieldName(relation)
	}
	return relation, field, true
}
