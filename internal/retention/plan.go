package retention

import "github.com/persistorai/trail/internal/models"

// planDeletion selects the oldest non-create versions beyond threshold.
// versions must be ordered oldest to newest. Create versions are never
// selected, so the create row stays the oldest survivor.
func planDeletion(versions []models.Version, threshold Limit) (doomed []int64, survivors []models.Version) {
	if threshold.IsUnlimited() {
		return nil, versions
	}

	var nonCreate int

	for i := range versions {
		if versions[i].Event != models.EventCreate {
			nonCreate++
		}
	}

	excess := nonCreate - threshold.Value()
	if excess <= 0 {
		return nil, versions
	}

	doomed = make([]int64, 0, excess)
	survivors = make([]models.Version, 0, len(versions)-excess)

	for i := range versions {
		v := versions[i]
		if excess > 0 && v.Event != models.EventCreate {
			doomed = append(doomed, v.ID)
			excess--

			continue
		}

		survivors = append(survivors, v)
	}

	return doomed, survivors
}

// planFieldPrune selects versions older than the newest limit survivors that
// still carry field. Rows whose field is already null (including the
// structural null on create rows) are not selected.
func planFieldPrune(survivors []models.Version, limit Limit, field models.Field) []int64 {
	if limit.IsUnlimited() || len(survivors) <= limit.Value() {
		return nil
	}

	older := survivors[:len(survivors)-limit.Value()]

	var ids []int64

	for i := range older {
		if older[i].HasField(field) {
			ids = append(ids, older[i].ID)
		}
	}

	return ids
}
