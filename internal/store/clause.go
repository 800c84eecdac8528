package store

import "gorm.io/gorm/clause"

func onConflictDoNothing(columns ...string) clause.OnConflict {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = clause.Column{Name: c}
	}
	return clause.OnConflict{Columns: cols, DoNothing: true}
}

// onConflictUpdate upserts on the first column, refreshing the remaining
// columns on conflict.
func onConflictUpdate(idColumn string, updateColumns ...string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: idColumn}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}
}
