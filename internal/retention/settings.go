package retention

import (
	"fmt"
	"sort"
)

// Defaults holds the process-wide retention settings.
type Defaults struct {
	VersionLimit        Limit `yaml:"version_limit" json:"version_limit"`
	ObjectsLimit        Limit `yaml:"objects_limit" json:"objects_limit"`
	ObjectsLimitEnabled bool  `yaml:"enable_objects_limit" json:"enable_objects_limit"`
	ChangesLimit        Limit `yaml:"changes_limit" json:"changes_limit"`
	ChangesLimitEnabled bool  `yaml:"enable_changes_limit" json:"enable_changes_limit"`
}

// Override holds per item type settings. Nil fields fall back to Defaults.
type Override struct {
	VersionLimit        *Limit `yaml:"version_limit" json:"version_limit,omitempty"`
	ObjectsLimit        *Limit `yaml:"objects_limit" json:"objects_limit,omitempty"`
	ObjectsLimitEnabled *bool  `yaml:"enable_objects_limit" json:"enable_objects_limit,omitempty"`
	ChangesLimit        *Limit `yaml:"changes_limit" json:"changes_limit,omitempty"`
	ChangesLimitEnabled *bool  `yaml:"enable_changes_limit" json:"enable_changes_limit,omitempty"`
}

// Settings is the complete two-level retention configuration. It is a plain
// value: callers pass it to the Cleaner on every invocation.
type Settings struct {
	Defaults  Defaults
	Overrides map[string]Override
	Policy    ThresholdPolicy
}

// Effective is the resolved configuration for one item type.
type Effective struct {
	ItemType            string          `json:"item_type"`
	VersionLimit        Limit           `json:"version_limit"`
	ObjectsLimit        Limit           `json:"objects_limit"`
	ObjectsLimitEnabled bool            `json:"enable_objects_limit"`
	ChangesLimit        Limit           `json:"changes_limit"`
	ChangesLimitEnabled bool            `json:"enable_changes_limit"`
	Policy              ThresholdPolicy `json:"policy"`
}

// Resolve applies the override for itemType, if any, over the defaults.
func (s Settings) Resolve(itemType string) Effective {
	d := s.Defaults
	e := Effective{
		ItemType:            itemType,
		VersionLimit:        d.VersionLimit,
		ObjectsLimit:        d.ObjectsLimit,
		ObjectsLimitEnabled: d.ObjectsLimitEnabled,
		ChangesLimit:        d.ChangesLimit,
		ChangesLimitEnabled: d.ChangesLimitEnabled,
		Policy:              s.Policy,
	}

	if e.Policy == "" {
		e.Policy = PolicyMax
	}

	o, ok := s.Overrides[itemType]
	if !ok {
		return e
	}

	if o.VersionLimit != nil {
		e.VersionLimit = *o.VersionLimit
	}

	if o.ObjectsLimit != nil {
		e.ObjectsLimit = *o.ObjectsLimit
	}

	if o.ObjectsLimitEnabled != nil {
		e.ObjectsLimitEnabled = *o.ObjectsLimitEnabled
	}

	if o.ChangesLimit != nil {
		e.ChangesLimit = *o.ChangesLimit
	}

	if o.ChangesLimitEnabled != nil {
		e.ChangesLimitEnabled = *o.ChangesLimitEnabled
	}

	return e
}

// OverriddenTypes returns the item types that carry an override, sorted.
func (s Settings) OverriddenTypes() []string {
	types := make([]string, 0, len(s.Overrides))
	for t := range s.Overrides {
		types = append(types, t)
	}

	sort.Strings(types)

	return types
}

// Validate reports configured limits that were rejected and replaced by
// unlimited. It never fails: the returned strings are meant for logging.
func (s Settings) Validate() []string {
	var warnings []string

	check := func(scope, name string, l *Limit) {
		if l == nil {
			return
		}

		if raw, bad := l.Invalid(); bad {
			warnings = append(warnings, fmt.Sprintf("%s %s: invalid value %q treated as unlimited", scope, name, raw))
		}
	}

	d := s.Defaults
	check("defaults", "version_limit", &d.VersionLimit)
	check("defaults", "objects_limit", &d.ObjectsLimit)
	check("defaults", "changes_limit", &d.ChangesLimit)

	for _, t := range s.OverriddenTypes() {
		o := s.Overrides[t]
		check(t, "version_limit", o.VersionLimit)
		check(t, "objects_limit", o.ObjectsLimit)
		check(t, "changes_limit", o.ChangesLimit)
	}

	return warnings
}

// objectsBound is the object limit when its pass is enabled, else unlimited.
func (e Effective) objectsBound() Limit {
	if !e.ObjectsLimitEnabled {
		return Unlimited()
	}

	return e.ObjectsLimit
}

// changesBound is the object_changes limit when its pass is enabled, else unlimited.
func (e Effective) changesBound() Limit {
	if !e.ChangesLimitEnabled {
		return Unlimited()
	}

	return e.ChangesLimit
}

// DeletionThreshold applies the configured policy.
func (e Effective) DeletionThreshold() Limit {
	return DeletionThreshold(e.Policy, e)
}

// Noop reports whether no pass can mutate anything under these limits.
func (e Effective) Noop() bool {
	return e.VersionLimit.IsUnlimited() &&
		e.objectsBound().IsUnlimited() &&
		e.changesBound().IsUnlimited()
}
