package postgres

import "errors"

// ignoreNotFound drops the expected not-found error so it is not counted as a
// database failure in query metrics.
func ignoreNotFound(err, notFound error) error {
	if errors.Is(err, notFound) {
		return nil
	}
	return err
}
