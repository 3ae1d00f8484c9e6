package aggregate

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"seguimiento/internal/core"
)

// MaxProjects is the number of projects the dashboard tracks.
const MaxProjects = 3

// fallbackName is the display name of a project with no name at all.
const fallbackName = "Proyecto"

// Archetype describes one known project and the phrases that identify its
// drifted spellings in the spreadsheets.
type Archetype struct {
	Short string `yaml:"short"`
	// Names are the exact long names, including known variants.
	Names []string `yaml:"names"`
	// Phrase identifies rows of this project when names drift.
	Phrase string `yaml:"phrase"`
	// Keywords must all appear for a name to shorten to Short.
	Keywords []string `yaml:"keywords"`
	// Fallback alone is enough to shorten a name when Keywords fail.
	Fallback string `yaml:"fallback"`
}

// Catalog is the registry of known project archetypes.
type Catalog struct {
	Projects []Archetype `yaml:"projects"`
}

// DefaultCatalog returns the built-in archetypes of the three investment projects.
func DefaultCatalog() *Catalog {
	return &Catalog{Projects: []Archetype{
		{
			Short: "Fortalecimiento PNGRD",
			Names: []string{
				"Fortalecimiento de la política nacional de gestión del riesgo de desastres mediante la valoración del impacto de la implementación del PNGRD.",
			},
			Phrase:   "política nacional de gestión del riesgo",
			Keywords: []string{"política nacional de gestión del riesgo", "pngrd"},
			Fallback: "fortalecimiento de la política nacional",
		},
		{
			Short: "Participación Ciudadana - SNGRD",
			Names: []string{
				"Fortalecimiento de los procesos sociales de participación ciudadana, gestión de conocimientos y saberes y divulgación en el marco del sistema nacional de gestión del riesgo de desastre.",
			},
			Phrase:   "procesos sociales de participación ciudadana",
			Keywords: []string{"procesos sociales de participación ciudadana", "sistema nacional"},
			Fallback: "fortalecimiento de los procesos sociales",
		},
		{
			Short: "Fortalecimiento Financiero - FNGRD",
			Names: []string{
				"Fortalecimiento financiero del FNGRD orientado al proceso de reasentamiento en el marco de acciones judiciales, relacionados con la ocurrencia de escenarios de riesgo. Murindó.",
				"Fortalecimiento financiero del FNGRD orientado al proceso de reasentamiento en el marco de acciones judiciales, relacionados con la ocurrencia de escenarios de riesgo.",
			},
			Phrase:   "fortalecimiento financiero del fngrd",
			Keywords: []string{"fortalecimiento financiero del fngrd", "reasentamiento"},
			Fallback: "fortalecimiento financiero del fngrd",
		},
	}}
}

// LoadCatalog reads a YAML catalog. An empty path returns the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse project catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("project catalog %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks that every archetype can be recognized.
func (c *Catalog) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("no projects defined")
	}
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Short) == "" {
			return fmt.Errorf("project %d: empty short name", i+1)
		}
		if strings.TrimSpace(p.Phrase) == "" && len(p.Names) == 0 {
			return fmt.Errorf("project %q: needs a phrase or at least one name", p.Short)
		}
	}
	return nil
}

// BelongsToProject reports whether a row's project field refers to project:
// either the names are equal, or both contain the identifying phrase of the
// same archetype.
func (c *Catalog) BelongsToProject(project, rowProject string) bool {
	project, rowProject = strings.TrimSpace(project), strings.TrimSpace(rowProject)
	if rowProject == "" {
		return false
	}
	if project == rowProject {
		return true
	}
	p, r := Fold(project), Fold(rowProject)
	for _, a := range c.Projects {
		phrase := Fold(a.Phrase)
		if phrase == "" {
			continue
		}
		if strings.Contains(p, phrase) && strings.Contains(r, phrase) {
			return true
		}
	}
	return false
}

// ShortName maps a long project name to its display label. Exact names are
// looked up first, then keyword pairs, then single-phrase fallbacks. Names
// that match nothing are returned unchanged.
func (c *Catalog) ShortName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fallbackName
	}
	for _, a := range c.Projects {
		for _, n := range a.Names {
			if strings.TrimSpace(n) == trimmed {
				return a.Short
			}
		}
	}
	folded := Fold(trimmed)
	for _, a := range c.Projects {
		if len(a.Keywords) > 0 && containsAll(folded, a.Keywords) {
			return a.Short
		}
	}
	for _, a := range c.Projects {
		if a.Fallback != "" && strings.Contains(folded, Fold(a.Fallback)) {
			return a.Short
		}
	}
	return trimmed
}

// ResolveFilter returns the known project whose long or short name equals
// filter.
func (c *Catalog) ResolveFilter(known []string, filter string) (string, bool) {
	filter = strings.TrimSpace(filter)
	for _, name := range known {
		if name == filter || c.ShortName(name) == filter {
			return name, true
		}
	}
	return "", false
}

// IsAll reports whether a project filter selects every project.
func IsAll(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, core.AllProjects)
}

// KnownProjects returns the first MaxProjects distinct non-empty project
// names in row order.
func KnownProjects(rows []core.ProjectRow) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Project)
	}
	return FirstDistinct(names, MaxProjects)
}

// FirstDistinct returns up to limit distinct non-empty trimmed values in order.
func FirstDistinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

func containsAll(folded string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(folded, Fold(k)) {
			return false
		}
	}
	return true
}
