package domain

import (
	"fmt"
	"time"
)

// RetentionPolicy keeps daily archives for DailyDays and archives stamped on MonthlyDay for MonthlyDays.
type RetentionPolicy struct {
	DailyDays   int `mapstructure:"daily_days"`
	MonthlyDays int `mapstructure:"monthly_days"`
	MonthlyDay  int `mapstructure:"monthly_day"`
}

func (p RetentionPolicy) Validate() error {
	if p.DailyDays <= 0 {
		return fmt.Errorf("daily_days must be positive, got %d", p.DailyDays)
	}
	if p.MonthlyDays < p.DailyDays {
		return fmt.Errorf("monthly_days (%d) must be >= daily_days (%d)", p.MonthlyDays, p.DailyDays)
	}
	if p.MonthlyDay < 1 || p.MonthlyDay > 31 {
		return fmt.Errorf("monthly_day must be within 1..31, got %d", p.MonthlyDay)
	}
	return nil
}

// IsMonthly reports whether the artifact belongs to the long-lived monthly class.
func (p RetentionPolicy) IsMonthly(a Artifact) bool {
	return a.Day() == p.MonthlyDay
}

// Expired reports whether a file of the given class with mtime modTime is past its threshold at now.
func (p RetentionPolicy) Expired(a Artifact, modTime, now time.Time) bool {
	days := p.DailyDays
	if p.IsMonthly(a) {
		days = p.MonthlyDays
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	return modTime.Before(cutoff)
}

// PruneResult counts what a pruning pass did.
type PruneResult struct {
	Matched int
	Deleted int
	Failed  int
}
