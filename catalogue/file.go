package catalogue

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/lacvalidate/rules"
)

type fileDocument struct {
	Years []fileYear `yaml:"years"`
}

type fileYear struct {
	Year    int        `yaml:"year"`
	Deleted []string   `yaml:"deleted"`
	Rules   []fileRule `yaml:"rules"`
}

type fileRule struct {
	Code           string   `yaml:"code"`
	Message        string   `yaml:"message"`
	Table          string   `yaml:"table"`
	Expression     string   `yaml:"expression"`
	AffectedFields []string `yaml:"affected_fields"`
}

// LoadFile reads expression-rule deltas from a YAML file:
//
//	years:
//	  - year: 2024
//	    deleted: ["101"]
//	    rules:
//	      - code: "510"
//	        table: Episodes
//	        expression: 'row.LS == "V2"'
func LoadFile(path string) ([]rules.YearDelta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue %s: %w", path, err)
	}
	defer f.Close()

	deltas, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return deltas, nil
}

// Decode parses the LoadFile format and compiles every rule.
func Decode(r io.Reader) ([]rules.YearDelta, error) {
	var doc fileDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse: %w", err)
	}

	deltas := make([]rules.YearDelta, 0, len(doc.Years))
	for _, y := range doc.Years {
		defs := make([]rules.RuleDefinition, 0, len(y.Rules))
		for _, fr := range y.Rules {
			d, err := rules.NewExpressionRule(rules.ExpressionSpec{
				Code:           fr.Code,
				Message:        fr.Message,
				Table:          fr.Table,
				Expression:     fr.Expression,
				AffectedFields: fr.AffectedFields,
			})
			if err != nil {
				return nil, fmt.Errorf("year %d: %w", y.Year, err)
			}
			defs = append(defs, d)
		}
		deltas = append(deltas, rules.NewYearDelta(y.Year, y.Deleted, defs...))
	}
	return deltas, nil
}
