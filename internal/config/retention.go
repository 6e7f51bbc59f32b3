package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/trail/internal/retention"
)

// limitsFile is the YAML document named by TRAIL_LIMITS_FILE.
//
//	policy: max
//	defaults:
//	  version_limit: 10
//	item_types:
//	  Bicycle:
//	    version_limit: 3
//	    objects_limit: 2
//	    enable_objects_limit: true
type limitsFile struct {
	Policy    *string                       `yaml:"policy"`
	Defaults  retention.Override            `yaml:"defaults"`
	ItemTypes map[string]retention.Override `yaml:"item_types"`
}

// LoadRetention builds retention settings from the TRAIL_* environment
// variables, then applies the limits file at path when it is non-empty.
// Invalid limit values never fail: they become unlimited and are returned
// as warnings. An unreadable or malformed file is an error.
func LoadRetention(path string) (retention.Settings, []string, error) {
	var (
		s        retention.Settings
		warnings []string
	)

	// Rejected limits are reported by Settings.Validate below.
	limit := func(key string) retention.Limit {
		l, _ := retention.ParseLimit(os.Getenv(key)) //nolint:errcheck // invalid values become unlimited.

		return l
	}

	flag := func(key string) bool {
		v := os.Getenv(key)
		if v == "" {
			return false
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not a boolean, treated as false", key, v))
		}

		return b
	}

	s.Defaults = retention.Defaults{
		VersionLimit:        limit("TRAIL_VERSION_LIMIT"),
		ObjectsLimit:        limit("TRAIL_OBJECTS_LIMIT"),
		ObjectsLimitEnabled: flag("TRAIL_ENABLE_OBJECTS_LIMIT"),
		ChangesLimit:        limit("TRAIL_CHANGES_LIMIT"),
		ChangesLimitEnabled: flag("TRAIL_ENABLE_CHANGES_LIMIT"),
	}

	policy := os.Getenv("TRAIL_DELETION_POLICY")

	if path != "" {
		f, err := readLimitsFile(path)
		if err != nil {
			return retention.Settings{}, nil, err
		}

		applyOverride(&s.Defaults, f.Defaults)
		s.Overrides = f.ItemTypes

		if f.Policy != nil {
			policy = *f.Policy
		}
	}

	p, err := retention.ParsePolicy(policy)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("TRAIL_DELETION_POLICY: %v, using %s", err, p))
	}

	s.Policy = p

	warnings = append(warnings, s.Validate()...)

	return s, warnings, nil
}

func readLimitsFile(path string) (*limitsFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path.
	if err != nil {
		return nil, fmt.Errorf("reading limits file: %w", err)
	}

	var f limitsFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing limits file %s: %w", path, err)
	}

	return &f, nil
}

func applyOverride(d *retention.Defaults, o retention.Override) {
	if o.VersionLimit != nil {
		d.VersionLimit = *o.VersionLimit
	}

	if o.ObjectsLimit != nil {
		d.ObjectsLimit = *o.ObjectsLimit
	}

	if o.ObjectsLimitEnabled != nil {
		d.ObjectsLimitEnabled = *o.ObjectsLimitEnabled
	}

	if o.ChangesLimit != nil {
		d.ChangesLimit = *o.ChangesLimit
	}

	if o.ChangesLimitEnabled != nil {
		d.ChangesLimitEnabled = *o.ChangesLimitEnabled
	}
}
