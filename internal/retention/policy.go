package retention

import "fmt"

// ThresholdPolicy decides how the field limits interact with the row limit
// when computing the deletion threshold. Deleting a row destroys its
// metadata, so a policy may raise the row limit to keep rows that a more
// generous field limit still covers.
type ThresholdPolicy string

// Deletion threshold policies.
const (
	// PolicyMax raises the row limit to the largest enabled field limit.
	PolicyMax ThresholdPolicy = "max"

	// PolicyChangesOnly lets only the object_changes limit raise the row
	// limit; the object limit never protects rows from deletion.
	PolicyChangesOnly ThresholdPolicy = "changes-only"

	// PolicyRowOnly ignores the field limits entirely when deleting rows.
	PolicyRowOnly ThresholdPolicy = "row-only"
)

// ParsePolicy parses a policy name. The empty string selects PolicyMax.
func ParsePolicy(s string) (ThresholdPolicy, error) {
	switch p := ThresholdPolicy(s); p {
	case "":
		return PolicyMax, nil
	case PolicyMax, PolicyChangesOnly, PolicyRowOnly:
		return p, nil
	default:
		return PolicyMax, fmt.Errorf("unknown deletion policy %q (want max, changes-only or row-only)", s)
	}
}

// DeletionThreshold returns how many non-create versions the row-deletion
// pass keeps for the given effective limits. Field limits only ever raise a
// finite row limit; when the row limit is unlimited nothing is deleted.
func DeletionThreshold(policy ThresholdPolicy, e Effective) Limit {
	if e.VersionLimit.IsUnlimited() {
		return Unlimited()
	}

	switch policy {
	case PolicyRowOnly:
		return e.VersionLimit
	case PolicyChangesOnly:
		return maxLimit(e.VersionLimit, e.changesBound())
	default:
		return maxLimit(e.VersionLimit, e.objectsBound(), e.changesBound())
	}
}
