package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gorm.io/dynform/schema"
)

// Output receives the generator's progress messages
var Output io.Writer = os.Stdout

var naming = schema.NamingStrategy{}

type FieldInfo struct {
	Name     string
	Type     string
	Required bool
}

// ParseFields parses attributes like `name:string:required,age:uint`
func ParseFields(attr string) ([]FieldInfo, error) {
	var fields []FieldInfo
	for _, a := range strings.Split(attr, ",") {
		parts := strings.Split(strings.TrimSpace(a), ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("attribute format is invalid: %q", a)
		}

		field := FieldInfo{Name: parts[0], Type: parts[1]}
		if len(parts) == 3 {
			if parts[2] != "required" {
				return nil, fmt.Errorf("unknown attribute flag %q in %q", parts[2], a)
			}
			field.Required = true
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// GenerateForm writes the model, its form constructor and registers the form in the forms package
func GenerateForm(modelName string, fields []FieldInfo, relations []RelationInfo, baseFolder string) error {
	if modelName == "" || len(fields) == 0 {
		return fmt.Errorf("modelName and fields must be provided")
	}
	modelName = exportedName(modelName)

	moduleName, err := getModuleName(baseFolder)
	if err != nil {
		return err
	}

	modelsFolder := filepath.Join(baseFolder, "internal", "models")
	formsFolder := filepath.Join(baseFolder, "internal", "forms")
	for _, folder := range []string{modelsFolder, formsFolder} {
		if err := os.MkdirAll(folder, os.ModePerm); err != nil {
			return err
		}
	}

	modelFile := filepath.Join(modelsFolder, naming.FormFieldName(modelName)+".go")
	if err := writeModel(modelFile, modelName, fields); err != nil {
		return err
	}
	if len(relations) > 0 {
		if err := AddRelation(modelFile, relations, modelName); err != nil {
			return err
		}
	}

	formFile := filepath.Join(formsFolder, naming.FormFieldName(modelName)+"_form.go")
	if err := writeForm(formFile, moduleName, modelName, fields, relations); err != nil {
		return err
	}

	return updateRegisterAll(formsFolder, modelName)
}

func writeModel(filename, modelName string, fields []FieldInfo) error {
	var lines []string
	for _, field := range fields {
		line := fmt.Sprintf("\t%s %s", exportedName(field.Name), mapType(field.Type))
		if field.Required {
			line += " `validate:\"required\"`"
		}
		lines = append(lines, line)
	}

	content := fmt.Sprintf(`package models

import "time"

type %s struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time%s
}
`, modelName, joinLines(lines))

	return writeFile(filename, content)
}

func writeForm(filename, moduleName, modelName string, fields []FieldInfo, relations []RelationInfo) error {
	names := []string{`"id"`}
	for _, field := range fields {
		names = append(names, fmt.Sprintf("%q", naming.FormFieldName(field.Name)))
	}

	var embeds []string
	for _, r := range relations {
		embeds = append(embeds, fmt.Sprintf(`		if err := m.EmbedRelation(f, %q); err != nil {
			return nil, err
		}`, r.Spec()))
	}

	formType := naming.FormTypeName(modelName)
	content := fmt.Sprintf(`package forms

import (
	"gorm.io/dynform"
	"gorm.io/dynform/form"

	"%s/internal/models"
)

// Register%s registers %s in registry
func Register%s(registry *form.Registry, m *dynform.Manager) {
	registry.Register(%q, func(object interface{}, args ...interface{}) (*form.Form, error) {
		f, err := form.New(%q, object, form.WithFields(%s))
		if err != nil {
			return nil, err
		}%s
		return f, nil
	})
}

// New%s builds %s for object
func New%s(registry *form.Registry, object *models.%s) (*form.Form, error) {
	return registry.Build(%q, object)
}
`, moduleName, formType, formType, formType, formType, naming.FormFieldName(modelName), strings.Join(names, ", "),
		joinLines(embeds), formType, formType, formType, modelName, formType)

	return writeFile(filename, content)
}

// updateRegisterAll adds the model's form to RegisterAll, creating register.go when missing
func updateRegisterAll(formsFolder, modelName string) error {
	registerFile := filepath.Join(formsFolder, "register.go")
	call := "Register" + naming.FormTypeName(modelName) + "(registry, m)"

	if _, err := os.Stat(registerFile); os.IsNotExist(err) {
		content := `package forms

import (
	"gorm.io/dynform"
	"gorm.io/dynform/form"
)

// RegisterAll registers every generated form type
func RegisterAll(registry *form.Registry, m *dynform.Manager) {
	` + call + `
	// Add other forms here
}
`
		return writeFile(registerFile, content)
	}

	data, err := os.ReadFile(registerFile)
	if err != nil {
		return err
	}

	text := string(data)
	if !strings.Contains(text, call) {
		text = strings.Replace(text, "// Add other forms here", call+"\n\t// Add other forms here", 1)
	}
	return os.WriteFile(registerFile, []byte(text), 0o644)
}

func writeFile(filename, content string) error {
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return err
	}

	fmt.Fprintln(Output, "Create file:", filename)
	return nil
}

func mapType(t string) string {
	switch t {
	case "string":
		return "string"
	case "int":
		return "int"
	case "uint":
		return "uint"
	case "float":
		return "float64"
	case "bool":
		return "bool"
	case "time":
		return "time.Time"
	case "ref":
		return "*uint"
	default:
		return "string"
	}
}

// exportedName converts `user_id` to `UserID`
func exportedName(s string) string {
	var (
		buf   strings.Builder
		title = cases.Title(language.Und, cases.NoLower)
	)
	for _, part := range strings.Split(s, "_") {
		if strings.EqualFold(part, "id") {
			buf.WriteString("ID")
			continue
		}
		buf.WriteString(title.String(part))
	}
	return buf.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n")
}
