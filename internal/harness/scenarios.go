package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// Scenario is one agent prompt against a fixture workbook
type Scenario struct {
	Name            string       `yaml:"name"`
	Workbook        string       `yaml:"workbook"`
	Prompt          string       `yaml:"prompt"`
	ExpectedPattern string       `yaml:"expected_pattern"`
	Validations     []Validation `yaml:"validations"`
}

// LoadScenarios returns the built-in scenarios
func LoadScenarios() ([]Scenario, error) {
	return parseScenarios(scenariosYAML)
}

func parseScenarios(data []byte) ([]Scenario, error) {
	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}
	for i, s := range scenarios {
		if s.Name == "" || s.Workbook == "" || s.Prompt == "" {
			return nil, fmt.Errorf("scenario %d: name, workbook and prompt are required", i+1)
		}
		if _, ok := fixtures[s.Workbook]; !ok {
			return nil, fmt.Errorf("scenario '%s': unknown fixture workbook '%s'", s.Name, s.Workbook)
		}
	}
	return scenarios, nil
}

// Find returns the scenarios whose name contains filter, ignoring case.
// An empty filter selects every scenario.
func Find(scenarios []Scenario, filter string) []Scenario {
	if filter == "" {
		return scenarios
	}
	var out []Scenario
	for _, s := range scenarios {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter)) {
			out = append(out, s)
		}
	}
	return out
}
