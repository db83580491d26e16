package ledger

import (
	"fmt"
	"strconv"
	"time"
)

// MonthMeta is the meta stored for ByMonth groups.
type MonthMeta struct {
	Year  int
	Month int
}

// Semester describes one half of a year.
type Semester struct {
	ID   int
	Text string
}

// Semesters are the two halves used by the student organisation's budget.
var Semesters = [2]Semester{
	{ID: 1, Text: "vår"},
	{ID: 2, Text: "høst"},
}

// SemesterMeta is the meta stored for BySemester groups.
type SemesterMeta struct {
	Year     int
	Semester Semester
}

// ByMonth groups postings by calendar month, keyed "YYYY-M".
func ByMonth(p Posting) Classification {
	year, month := p.Date.Year(), int(p.Date.Month())
	return Group(fmt.Sprintf("%d-%d", year, month), MonthMeta{Year: year, Month: month})
}

// BySemester groups postings by half year, keyed "YYYY-1" or "YYYY-2".
func BySemester(p Posting) Classification {
	sem := Semesters[0]
	if p.Date.Month() >= time.July {
		sem = Semesters[1]
	}
	year := p.Date.Year()
	return Group(fmt.Sprintf("%d-%d", year, sem.ID), SemesterMeta{Year: year, Semester: sem})
}

// ByDepartment groups postings by department number. Postings without a
// department share the "" key.
func ByDepartment(p Posting) Classification {
	return Group(optionalKey(p.DepartmentNumber), p.DepartmentName)
}

// ByProject groups postings by project number.
func ByProject(p Posting) Classification {
	return Group(optionalKey(p.ProjectNumber), p.ProjectName)
}

// ByAccount groups postings by account number.
func ByAccount(p Posting) Classification {
	return Group(strconv.Itoa(p.AccountNumber), p.AccountName)
}

// AccountRange keeps postings with from <= account <= to. A zero bound is open.
func AccountRange(from, to int) Classifier {
	return func(p Posting) Classification {
		if from != 0 && p.AccountNumber < from {
			return Exclude()
		}
		if to != 0 && p.AccountNumber > to {
			return Exclude()
		}
		return Pass()
	}
}

// DateRange keeps postings dated within [from, to]. A zero time is open.
func DateRange(from, to time.Time) Classifier {
	return func(p Posting) Classification {
		if !from.IsZero() && p.Date.Before(from) {
			return Exclude()
		}
		if !to.IsZero() && p.Date.After(to) {
			return Exclude()
		}
		return Pass()
	}
}

// StandardLevels is the month → department → project → account grouping
// used for the aggregated accounting report.
func StandardLevels() []Classifier {
	return []Classifier{ByMonth, ByDepartment, ByProject, ByAccount}
}
