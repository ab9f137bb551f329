// Package progress records body measurements and medication intake so the
// coach can report trends over time.
package progress

import "time"

// Measurement is one body measurement entry. All figures are optional, the
// user logs whatever they measured that day.
type Measurement struct {
	ID     int64
	Date   time.Time
	Weight *float64
	Waist  *float64
	Belly  *float64
	Biceps *float64
	Chest  *float64
	Note   string
}

// MedEntry is one logged medication or supplement intake.
type MedEntry struct {
	ID       int64
	Date     time.Time
	Name     string
	AmountMg *float64
	AmountMl *float64
	Note     string
}
