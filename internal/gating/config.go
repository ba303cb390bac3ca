package gating

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed gating.yaml
var defaultConfigFS embed.FS

// Module is a catalog entry.
type Module struct {
	Slug     string   `yaml:"slug" json:"slug"`
	Title    string   `yaml:"title" json:"title"`
	Position int      `yaml:"position" json:"position"`
	Lessons  []string `yaml:"lessons" json:"lessons"`
}

func (m Module) LessonCount() int { return len(m.Lessons) }

// Prerequisite is the declarative descriptor evaluated by CheckModulePrerequisites.
type Prerequisite struct {
	RequiredModules        []string `yaml:"required_modules,omitempty" json:"requiredModules,omitempty"`
	RequiredDrainageScore  float64  `yaml:"required_drainage_score,omitempty" json:"requiredDrainageScore,omitempty"`
	RequiredDrainageDays   int      `yaml:"required_drainage_days,omitempty" json:"requiredDrainageDays,omitempty"`
	RequiredCompletionRate float64  `yaml:"required_completion_rate,omitempty" json:"requiredCompletionRate,omitempty"`
	CustomCheck            string   `yaml:"custom_check,omitempty" json:"customCheck,omitempty"`
}

// rules compiles the descriptor into the shared rule form, in the order the
// checklist is reported.
func (p Prerequisite) rules() []Rule {
	var out []Rule
	if len(p.RequiredModules) > 0 {
		out = append(out, Rule{Type: RuleModule, Condition: Condition{RequiredModules: p.RequiredModules}, Priority: PriorityNormal})
	}
	if p.RequiredDrainageScore > 0 {
		days := p.RequiredDrainageDays
		if days <= 0 {
			days = 1
		}
		out = append(out, Rule{Type: RuleDrainage, Condition: Condition{MinScore: p.RequiredDrainageScore, ConsecutiveDays: days}, Priority: PriorityCritical})
	}
	if p.RequiredCompletionRate > 0 {
		out = append(out, Rule{Type: RuleCompletion, Condition: Condition{MinPercentage: p.RequiredCompletionRate}, Priority: PriorityNormal})
	}
	if p.CustomCheck != "" {
		out = append(out, Rule{Type: RuleCustom, Condition: Condition{Check: p.CustomCheck}, Priority: PriorityNormal})
	}
	return out
}

// DrainageThreshold is a minimum score sustained for a number of days.
type DrainageThreshold struct {
	MinScore        float64 `yaml:"min_score" json:"minScore"`
	ConsecutiveDays int     `yaml:"consecutive_days" json:"consecutiveDays"`
}

// Advisory drives CanSafelyProceed for one module.
type Advisory struct {
	Drainage      *DrainageThreshold `yaml:"drainage,omitempty" json:"drainage,omitempty"`
	UnmetWarnings []string           `yaml:"unmet_warnings,omitempty" json:"unmetWarnings,omitempty"`
	Warnings      []string           `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// Config is everything the engine needs besides data. It is built once and
// treated as read-only afterwards.
type Config struct {
	Catalog       string                  `yaml:"catalog"`
	Version       int                     `yaml:"version"`
	Modules       []Module                `yaml:"modules"`
	SafetyGates   []string                `yaml:"safety_gates"`
	Rules         map[string][]Rule       `yaml:"rules"`
	Prerequisites map[string]Prerequisite `yaml:"prerequisites"`
	Advisories    map[string]Advisory     `yaml:"advisories"`

	bySlug map[string]Module
	safety map[string]bool
	order  []string
}

// DefaultConfig returns the embedded course configuration.
func DefaultConfig() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("gating.yaml")
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// LoadConfig reads path, or the embedded configuration when path is empty.
func LoadConfig(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gating config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode gating config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes defaults, checks references and thresholds, and rejects
// cyclic module prerequisites.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("missing gating config")
	}
	if len(c.Modules) == 0 {
		return errors.New("gating config: no modules defined")
	}
	c.bySlug = make(map[string]Module, len(c.Modules))
	for _, m := range c.Modules {
		slug := strings.TrimSpace(m.Slug)
		if slug == "" {
			return errors.New("gating config: module slug is required")
		}
		if _, dup := c.bySlug[slug]; dup {
			return fmt.Errorf("gating config: duplicate module %s", slug)
		}
		if m.Position <= 0 {
			return fmt.Errorf("gating config: module %s: position must be positive", slug)
		}
		c.bySlug[slug] = m
	}
	sort.SliceStable(c.Modules, func(i, j int) bool { return c.Modules[i].Position < c.Modules[j].Position })

	c.safety = make(map[string]bool, len(c.SafetyGates))
	for _, slug := range c.SafetyGates {
		if !c.known(slug) {
			return fmt.Errorf("gating config: safety gate references unknown module %s", slug)
		}
		c.safety[slug] = true
	}

	for slug, rules := range c.Rules {
		if !c.known(slug) {
			return fmt.Errorf("gating config: rules for unknown module %s", slug)
		}
		for i := range rules {
			if rules[i].Priority == "" {
				rules[i].Priority = PriorityNormal
			}
			if err := c.validateRule(slug, rules[i]); err != nil {
				return fmt.Errorf("gating config: module %s rule %d: %w", slug, i, err)
			}
		}
	}

	for slug, p := range c.Prerequisites {
		if !c.known(slug) {
			return fmt.Errorf("gating config: prerequisites for unknown module %s", slug)
		}
		for _, req := range p.RequiredModules {
			if err := c.validateEdge(slug, req); err != nil {
				return fmt.Errorf("gating config: prerequisites for %s: %w", slug, err)
			}
		}
		if p.RequiredDrainageScore < 0 || p.RequiredDrainageScore > 100 {
			return fmt.Errorf("gating config: prerequisites for %s: drainage score %.1f out of range", slug, p.RequiredDrainageScore)
		}
		if p.RequiredDrainageDays < 0 {
			return fmt.Errorf("gating config: prerequisites for %s: negative drainage days", slug)
		}
		if p.RequiredCompletionRate < 0 || p.RequiredCompletionRate > 100 {
			return fmt.Errorf("gating config: prerequisites for %s: completion rate %.1f out of range", slug, p.RequiredCompletionRate)
		}
	}

	for slug, a := range c.Advisories {
		if !c.known(slug) {
			return fmt.Errorf("gating config: advisory for unknown module %s", slug)
		}
		if a.Drainage != nil {
			if err := validateDrainage(a.Drainage.MinScore, a.Drainage.ConsecutiveDays); err != nil {
				return fmt.Errorf("gating config: advisory for %s: %w", slug, err)
			}
		}
	}

	order, err := c.topoSort()
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *Config) validateRule(slug string, r Rule) error {
	switch r.Priority {
	case PriorityCritical, PriorityImportant, PriorityNormal:
	default:
		return fmt.Errorf("unknown priority %q", r.Priority)
	}
	switch r.Type {
	case RuleModule:
		mods := r.Condition.modules()
		if len(mods) == 0 {
			return errors.New("module rule needs required_module")
		}
		for _, req := range mods {
			if err := c.validateEdge(slug, req); err != nil {
				return err
			}
		}
	case RuleDrainage:
		return validateDrainage(r.Condition.MinScore, r.Condition.ConsecutiveDays)
	case RuleCompletion:
		if r.Condition.MinPercentage <= 0 || r.Condition.MinPercentage > 100 {
			return fmt.Errorf("min_percentage %.1f out of range", r.Condition.MinPercentage)
		}
	case RuleTime:
		if r.Condition.DaysFromEnrollment <= 0 {
			return errors.New("days_from_enrollment must be positive")
		}
	case RuleCustom:
		if strings.TrimSpace(r.Condition.Check) == "" {
			return errors.New("custom rule needs a check name")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

func validateDrainage(minScore float64, days int) error {
	if minScore <= 0 || minScore > 100 {
		return fmt.Errorf("min_score %.1f out of range", minScore)
	}
	if days <= 0 {
		return errors.New("consecutive_days must be positive")
	}
	return nil
}

func (c *Config) validateEdge(slug, req string) error {
	if !c.known(req) {
		return fmt.Errorf("unknown required module %s", req)
	}
	if req == slug {
		return fmt.Errorf("module %s requires itself", slug)
	}
	return nil
}

// requires returns the prerequisite module edges of slug, deduplicated and sorted.
func (c *Config) requires(slug string) []string {
	seen := map[string]bool{}
	for _, r := range c.Rules[slug] {
		if r.Type != RuleModule {
			continue
		}
		for _, req := range r.Condition.modules() {
			seen[req] = true
		}
	}
	for _, req := range c.Prerequisites[slug].RequiredModules {
		seen[req] = true
	}
	out := make([]string, 0, len(seen))
	for req := range seen {
		out = append(out, req)
	}
	sort.Strings(out)
	return out
}

// topoSort orders modules so every prerequisite precedes its dependents,
// breaking ties by catalog position.
func (c *Config) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(c.Modules))
	dependents := map[string][]string{}
	for _, m := range c.Modules {
		reqs := c.requires(m.Slug)
		indegree[m.Slug] = len(reqs)
		for _, req := range reqs {
			dependents[req] = append(dependents[req], m.Slug)
		}
	}

	order := make([]string, 0, len(c.Modules))
	done := map[string]bool{}
	for len(order) < len(c.Modules) {
		progressed := false
		for _, m := range c.Modules {
			if done[m.Slug] || indegree[m.Slug] > 0 {
				continue
			}
			done[m.Slug] = true
			order = append(order, m.Slug)
			for _, dep := range dependents[m.Slug] {
				indegree[dep]--
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, m := range c.Modules {
				if !done[m.Slug] {
					stuck = append(stuck, m.Slug)
				}
			}
			return nil, fmt.Errorf("gating config: prerequisite cycle among %s", strings.Join(stuck, ", "))
		}
	}
	return order, nil
}

func (c *Config) known(slug string) bool {
	_, ok := c.bySlug[slug]
	return ok
}

// Module returns the catalog entry for slug.
func (c *Config) Module(slug string) (Module, bool) {
	m, ok := c.bySlug[slug]
	return m, ok
}

// Slugs returns every module slug in catalog order.
func (c *Config) Slugs() []string {
	out := make([]string, 0, len(c.Modules))
	for _, m := range c.Modules {
		out = append(out, m.Slug)
	}
	return out
}

// TopologicalOrder returns module slugs with prerequisites first.
func (c *Config) TopologicalOrder() []string {
	return append([]string(nil), c.order...)
}

// IsSafetyGate reports whether slug is statically flagged as a safety gate.
func (c *Config) IsSafetyGate(slug string) bool { return c.safety[slug] }

// Dependents returns modules that list slug as a prerequisite.
func (c *Config) Dependents(slug string) []string {
	var out []string
	for _, m := range c.Modules {
		for _, req := range c.requires(m.Slug) {
			if req == slug {
				out = append(out, m.Slug)
				break
			}
		}
	}
	return out
}

// ModulesWithRule returns, in catalog order, modules whose gating rules
// include a rule of type t.
func (c *Config) ModulesWithRule(t RuleType) []string {
	var out []string
	for _, m := range c.Modules {
		for _, r := range c.Rules[m.Slug] {
			if r.Type == t {
				out = append(out, m.Slug)
				break
			}
		}
	}
	return out
}

func (c *Config) customChecks() []string {
	seen := map[string]bool{}
	for _, rules := range c.Rules {
		for _, r := range rules {
			if r.Type == RuleCustom {
				seen[r.Condition.Check] = true
			}
		}
	}
	for _, p := range c.Prerequisites {
		if p.CustomCheck != "" {
			seen[p.CustomCheck] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Config) title(slug string) string {
	if m, ok := c.bySlug[slug]; ok && m.Title != "" {
		return m.Title
	}
	return slug
}
