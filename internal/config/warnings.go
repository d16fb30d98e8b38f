package config

import "fmt"

// Warning codes surfaced by Config.Warnings.
const (
	WarningUnknownChainProvider   = "unknown_chain_provider"
	WarningUnknownProfileProvider = "unknown_profile_provider"
)

// Warning is a non-fatal configuration finding. Warnings never block
// startup; they flag likely operator mistakes.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warnings reports advisory findings: policy chains or profiles that name
// providers absent from the providers section. The router drops such
// entries at resolution time, so a typo here silently shrinks a chain.
func (c *Config) Warnings() []Warning {
	configured := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		configured[p.Name] = struct{}{}
	}

	var out []Warning
	flagChain := func(where string, names []string) {
		for _, name := range names {
			if name == "" {
				continue
			}
			if _, ok := configured[name]; !ok {
				out = append(out, Warning{
					Code:    WarningUnknownChainProvider,
					Message: fmt.Sprintf("%s references provider %q which is not configured", where, name),
				})
			}
		}
	}

	for intent, route := range c.Policy.Intents {
		flagChain(fmt.Sprintf("intent %q", intent), route.Chain())
	}
	for i, rule := range c.Policy.Rules {
		where := fmt.Sprintf("escalation_rules[%d]", i)
		flagChain(where, rule.Chain)
		if rule.FinalProvider != "" {
			flagChain(where, []string{rule.FinalProvider})
		}
	}

	for name := range c.Policy.Profiles {
		if _, ok := configured[name]; !ok {
			out = append(out, Warning{
				Code:    WarningUnknownProfileProvider,
				Message: fmt.Sprintf("profile %q does not match any configured provider", name),
			})
		}
	}

	return out
}
