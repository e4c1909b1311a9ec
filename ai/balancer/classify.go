package balancer

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Intent is the category leaning of a hiring query.
type Intent string

const (
	IntentTechnical  Intent = "technical"
	IntentBehavioral Intent = "behavioral"
	IntentMixed      Intent = "mixed"
)

// Lexicon holds the category-indicative keyword lists used for query intent
// classification. Matching is case-insensitive substring containment, so
// multi-word phrases like "problem solving" are supported.
type Lexicon struct {
	Technical  []string `yaml:"technical"`
	Behavioral []string `yaml:"behavioral"`
}

// classifyMargin is the score margin one category must hold over the other
// before the query stops being treated as mixed.
const classifyMargin = 2

// DefaultLexicon returns the built-in keyword lexicon.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Technical: []string{
			// Roles / functions
			"developer", "engineer", "tester", "qa", "sdet",
			"analyst", "data scientist", "scientist",
			"programmer", "architect",
			// Skills / technologies
			"programming", "coding", "java", "python", "c++", "c#",
			"javascript", "typescript", "sql", "nosql", "database",
			"react", "angular", "node", "dotnet", ".net", "spring",
			"frontend", "front-end", "backend", "back-end",
			"full stack", "cloud", "aws", "azure", "gcp",
			"linux", "devops", "automation",
			// Cognitive / aptitude
			"cognitive", "aptitude", "numerical", "verbal",
			"reasoning", "logical", "logic", "problem solving",
			"quantitative", "statistics", "statistical",
			// Tools
			"excel", "power bi", "tableau", "sql server",
		},
		Behavioral: []string{
			// Interpersonal / communication
			"collaborate", "collaboration", "teamwork", "team player",
			"communication", "communicator", "presentation",
			"stakeholder", "client", "customer", "service", "support",
			"relationship", "negotiation", "influence",
			// Leadership / management
			"leadership", "leader", "manage", "management",
			"people manager", "coaching", "mentoring",
			// Traits / soft skills
			"adaptability", "flexibility", "resilience", "stress",
			"pressure", "conflict", "empathy", "trust",
			"initiative", "ownership", "proactive", "motivation",
			"drive", "values", "culture", "fit",
			// Assessment-related
			"personality", "behavior", "behavioural",
			"situational", "judgment", "sjt", "emotional", "eq",
			"work style", "competency", "competencies",
		},
	}
}

// LoadLexiconFile reads a lexicon override from a YAML file. Empty lists
// fall back to the built-in defaults.
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lexicon file %s", path)
	}

	var lexicon Lexicon
	if err := yaml.Unmarshal(data, &lexicon); err != nil {
		return nil, errors.Wrapf(err, "failed to parse lexicon file %s", path)
	}

	defaults := DefaultLexicon()
	if len(lexicon.Technical) == 0 {
		lexicon.Technical = defaults.Technical
	}
	if len(lexicon.Behavioral) == 0 {
		lexicon.Behavioral = defaults.Behavioral
	}
	return &lexicon, nil
}

// Classify determines the category leaning of a query. It is a pure function
// of the query text: each category scores one point per lexicon keyword that
// appears in the lowercased query, and a category must lead by at least
// classifyMargin points to win; otherwise the query is mixed.
func (l *Lexicon) Classify(query string) Intent {
	lowered := strings.ToLower(query)

	techScore := 0
	for _, kw := range l.Technical {
		if strings.Contains(lowered, kw) {
			techScore++
		}
	}
	behavScore := 0
	for _, kw := range l.Behavioral {
		if strings.Contains(lowered, kw) {
			behavScore++
		}
	}

	switch {
	case techScore >= behavScore+classifyMargin:
		return IntentTechnical
	case behavScore >= techScore+classifyMargin:
		return IntentBehavioral
	default:
		return IntentMixed
	}
}
