package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk YAML shape:
//
//	rules:
//	  - action: vaultUpload
//	    amount: 50
//	    cooldown_seconds: 3600
//	    max_per_day: 5
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a rule table from a YAML file. Rules in the file fully
// replace the built-in defaults for the actions they name; actions absent
// from the file keep their defaults.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}

	merged := Defaults().All()
	overridden := make(map[string]Rule, len(rf.Rules))
	for _, r := range rf.Rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
		if _, ok := overridden[r.Action]; ok {
			return nil, fmt.Errorf("rules file %s: duplicate rule for action %s", path, r.Action)
		}
		overridden[r.Action] = r
	}

	out := make([]Rule, 0, len(merged)+len(overridden))
	for _, r := range merged {
		if o, ok := overridden[r.Action]; ok {
			out = append(out, o)
			delete(overridden, r.Action)
			continue
		}
		out = append(out, r)
	}
	for _, r := range overridden {
		out = append(out, r)
	}
	return NewTable(out)
}
