package fields

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"facturas/pkg/models"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Category is one bucket of the taxonomy with the keywords that select it.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy drives type classification and categorization.
type Taxonomy struct {
	Income       []Category `yaml:"income"`
	Expense      []Category `yaml:"expense"`
	TypeKeywords struct {
		Expense []string `yaml:"expense"`
		Income  []string `yaml:"income"`
	} `yaml:"classify"`
}

var builtin = sync.OnceValue(func() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("fields: embedded taxonomy: %v", err))
	}
	return t
})

// DefaultTaxonomy returns the built-in Argentine small-business taxonomy.
func DefaultTaxonomy() *Taxonomy {
	return builtin()
}

// ParseTaxonomy decodes a YAML taxonomy.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(t.Income) == 0 || len(t.Expense) == 0 {
		return nil, fmt.Errorf("parse taxonomy: income and expense need at least one category each")
	}
	return &t, nil
}

// LoadTaxonomy reads a YAML taxonomy file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return ParseTaxonomy(data)
}

// Classify counts purchase and sale keywords. Ties resolve to income.
func (t *Taxonomy) Classify(text string) models.InvoiceType {
	l := strings.ToLower(text)
	if countHits(l, t.TypeKeywords.Expense) > countHits(l, t.TypeKeywords.Income) {
		return models.TypeExpense
	}
	return models.TypeIncome
}

// Categorize returns the first category of the type whose keywords appear
// in text, or the type's last category when none does.
func (t *Taxonomy) Categorize(text string, typ models.InvoiceType) string {
	cats := t.categories(typ)
	l := strings.ToLower(text)
	for _, c := range cats {
		if containsAny(l, c.Keywords...) {
			return c.Name
		}
	}
	return cats[len(cats)-1].Name
}

// Has reports whether name is a category of typ.
func (t *Taxonomy) Has(typ models.InvoiceType, name string) bool {
	for _, c := range t.categories(typ) {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (t *Taxonomy) categories(typ models.InvoiceType) []Category {
	if typ == models.TypeExpense {
		return t.Expense
	}
	return t.Income
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

// Classify uses the built-in taxonomy.
func Classify(text string) models.InvoiceType {
	return DefaultTaxonomy().Classify(text)
}

// Categorize uses the built-in taxonomy.
func Categorize(text string, typ models.InvoiceType) string {
	return DefaultTaxonomy().Categorize(text, typ)
}
