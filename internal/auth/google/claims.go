package google

import "github.com/servicehub/backend/internal/models"

// Claim keys cached on the local user record from the federated profile.
const (
	ClaimGoogleID      = "google_id"
	ClaimGooglePicture = "google_picture"
	ClaimGoogleName    = "google_name"
)

// DiffClaims compares the stored claims against the desired key/value set
// and returns the mutations to apply. Keys outside desired are left alone;
// an empty desired value removes any stored claim instead of writing an
// empty row; an unchanged value produces no mutation, so applying the diff
// twice in a row is a no-op the second time.
func DiffClaims(existing []models.UserClaim, desired map[string]string) (toRemove, toAdd []models.UserClaim) {
	current := make(map[string]models.UserClaim, len(existing))
	for _, c := range existing {
		current[c.Type] = c
	}

	for key, value := range desired {
		old, ok := current[key]
		if value == "" {
			if ok {
				toRemove = append(toRemove, old)
			}
			continue
		}
		if !ok {
			toAdd = append(toAdd, models.UserClaim{Type: key, Value: value})
			continue
		}
		if old.Value != value {
			toRemove = append(toRemove, old)
			toAdd = append(toAdd, models.UserClaim{Type: key, Value: value})
		}
	}
	return toRemove, toAdd
}
