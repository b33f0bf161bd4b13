package forecast

import "time"

// fixedHolidays are the fixed-date Turkish national holidays. Demand on
// these days behaves like a weekend regardless of weekday, so they get
// their own additive component. Religious holidays move through the
// calendar and are not modeled.
var fixedHolidays = map[[2]int]bool{
	{1, 1}:   true, // New Year's Day
	{4, 23}:  true, // National Sovereignty and Children's Day
	{5, 1}:   true, // Labour Day
	{5, 19}:  true, // Commemoration of Atatürk, Youth and Sports Day
	{7, 15}:  true, // Democracy and National Unity Day
	{8, 30}:  true, // Victory Day
	{10, 29}: true, // Republic Day
}

// IsNationalHoliday reports whether t falls on a fixed-date national
// holiday.
func IsNationalHoliday(t time.Time) bool {
	return fixedHolidays[[2]int{int(t.Month()), t.Day()}]
}
