package postgres

import "time"

// nullableTime maps a zero time.Time to a Postgres NULL, since
// GameHistory.FinishedAt is unset while a game is still in progress.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
