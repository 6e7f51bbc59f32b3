package retention

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_OverrideWinsPerField(t *testing.T) {
	s := Settings{
		Defaults: Defaults{
			VersionLimit:        NewLimit(10),
			ObjectsLimit:        NewLimit(5),
			ObjectsLimitEnabled: true,
			ChangesLimit:        NewLimit(8),
		},
		Overrides: map[string]Override{
			"Bicycle": {VersionLimit: ptr(NewLimit(3))},
			"Widget":  {ObjectsLimitEnabled: ptr(false), ChangesLimitEnabled: ptr(true)},
		},
	}

	bike := s.Resolve("Bicycle")
	if bike.VersionLimit.Value() != 3 {
		t.Errorf("Bicycle version limit = %s, want 3", bike.VersionLimit)
	}

	if bike.ObjectsLimit.Value() != 5 || !bike.ObjectsLimitEnabled {
		t.Errorf("Bicycle objects = %s/%v, want default 5/true", bike.ObjectsLimit, bike.ObjectsLimitEnabled)
	}

	widget := s.Resolve("Widget")
	if widget.VersionLimit.Value() != 10 {
		t.Errorf("Widget version limit = %s, want default 10", widget.VersionLimit)
	}

	if widget.ObjectsLimitEnabled {
		t.Error("Widget objects limit should be disabled by override")
	}

	if !widget.ChangesLimitEnabled || widget.ChangesLimit.Value() != 8 {
		t.Errorf("Widget changes = %s/%v, want 8/true", widget.ChangesLimit, widget.ChangesLimitEnabled)
	}

	other := s.Resolve("Gadget")
	if other.VersionLimit.Value() != 10 || other.Policy != PolicyMax {
		t.Errorf("Gadget = %+v, want defaults with max policy", other)
	}
}

func TestResolve_ExplicitUnlimitedOverride(t *testing.T) {
	s := Settings{
		Defaults:  Defaults{VersionLimit: NewLimit(2)},
		Overrides: map[string]Override{"Archive": {VersionLimit: ptr(Unlimited())}},
	}

	if e := s.Resolve("Archive"); !e.VersionLimit.IsUnlimited() || !e.Noop() {
		t.Errorf("Archive = %+v, want unlimited noop", e)
	}
}

func TestEffective_Noop(t *testing.T) {
	tests := []struct {
		name string
		e    Effective
		want bool
	}{
		{name: "all unlimited", e: Effective{}, want: true},
		{name: "disabled field limits", e: Effective{ObjectsLimit: NewLimit(2), ChangesLimit: NewLimit(2)}, want: true},
		{name: "enabled but unset", e: Effective{ObjectsLimitEnabled: true, ChangesLimitEnabled: true}, want: true},
		{name: "row limit", e: Effective{VersionLimit: NewLimit(1)}, want: false},
		{name: "objects limit", e: Effective{ObjectsLimit: NewLimit(1), ObjectsLimitEnabled: true}, want: false},
		{name: "changes limit", e: Effective{ChangesLimit: NewLimit(1), ChangesLimitEnabled: true}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.e.Noop(); got != tc.want {
				t.Errorf("Noop() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeletionThreshold(t *testing.T) {
	tests := []struct {
		name    string
		e       Effective
		max     Limit
		changes Limit
		row     Limit
	}{
		{
			name: "row limit only",
			e:    Effective{VersionLimit: NewLimit(3)},
			max:  NewLimit(3), changes: NewLimit(3), row: NewLimit(3),
		},
		{
			name: "objects limit below row limit",
			e:    Effective{VersionLimit: NewLimit(6), ObjectsLimit: NewLimit(3), ObjectsLimitEnabled: true},
			max:  NewLimit(6), changes: NewLimit(6), row: NewLimit(6),
		},
		{
			name: "objects limit above row limit",
			e:    Effective{VersionLimit: NewLimit(4), ObjectsLimit: NewLimit(6), ObjectsLimitEnabled: true},
			max:  NewLimit(6), changes: NewLimit(4), row: NewLimit(4),
		},
		{
			name: "disabled objects limit does not extend",
			e:    Effective{VersionLimit: NewLimit(4), ObjectsLimit: NewLimit(6)},
			max:  NewLimit(4), changes: NewLimit(4), row: NewLimit(4),
		},
		{
			name: "changes limit above row limit",
			e:    Effective{VersionLimit: NewLimit(5), ChangesLimit: NewLimit(10), ChangesLimitEnabled: true},
			max:  NewLimit(10), changes: NewLimit(10), row: NewLimit(5),
		},
		{
			name: "unlimited row limit never deletes",
			e:    Effective{ChangesLimit: NewLimit(10), ChangesLimitEnabled: true},
			max:  Unlimited(), changes: Unlimited(), row: Unlimited(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for policy, want := range map[ThresholdPolicy]Limit{
				PolicyMax:         tc.max,
				PolicyChangesOnly: tc.changes,
				PolicyRowOnly:     tc.row,
			} {
				if got := DeletionThreshold(policy, tc.e); got != want {
					t.Errorf("%s: threshold = %s, want %s", policy, got, want)
				}
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]ThresholdPolicy{
		"":             PolicyMax,
		"max":          PolicyMax,
		"changes-only": PolicyChangesOnly,
		"row-only":     PolicyRowOnly,
	} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParsePolicy("min"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSettings_Validate(t *testing.T) {
	bad, _ := ParseLimit("-1") //nolint:errcheck // invalid on purpose.
	s := Settings{
		Defaults:  Defaults{VersionLimit: bad},
		Overrides: map[string]Override{"Bicycle": {ChangesLimit: &bad}, "Widget": {VersionLimit: ptr(NewLimit(2))}},
	}

	warnings := s.Validate()
	if len(warnings) != 2 {
		t.Fatalf("Validate() = %v, want 2 warnings", warnings)
	}

	if !strings.Contains(warnings[0], "defaults version_limit") {
		t.Errorf("warnings[0] = %q", warnings[0])
	}

	if !strings.Contains(warnings[1], "Bicycle changes_limit") {
		t.Errorf("warnings[1] = %q", warnings[1])
	}

	if got := s.OverriddenTypes(); len(got) != 2 || got[0] != "Bicycle" || got[1] != "Widget" {
		t.Errorf("OverriddenTypes() = %v", got)
	}
}
