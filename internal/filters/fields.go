package filters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
)

// BooleanField filters a nullable boolean column. Accepted values are
// true/yes, false/no and null/none; null matches rows where the column is
// NULL, which is how pending approval states are queried.
type BooleanField struct {
	Column string
}

func (f BooleanField) apply(db *gorm.DB, op, raw string) (*gorm.DB, bool) {
	if op != opNone {
		return db, false
	}

	var (
		wantNull bool
		vals     []bool
	)
	for _, part := range splitValues(raw) {
		switch strings.ToLower(part) {
		case "true", "yes":
			vals = append(vals, true)
		case "false", "no":
			vals = append(vals, false)
		case "null", "none":
			wantNull = true
		default:
			return db, false
		}
	}

	switch {
	case wantNull && len(vals) > 0:
		return db.Where(f.Column+" IN ? OR "+f.Column+" IS NULL", vals), true
	case wantNull:
		return db.Where(f.Column + " IS NULL"), true
	case len(vals) > 0:
		return db.Where(f.Column+" IN ?", vals), true
	}
	return db, false
}

// IntField filters an integer column, supporting comma lists and the
// __lt/__gt/__lte/__gte/__in suffixes. When DateYear is set the column holds
// a date and values are interpreted as calendar years.
type IntField struct {
	Column   string
	DateYear bool
}

func (f IntField) apply(db *gorm.DB, op, raw string) (*gorm.DB, bool) {
	vals, ok := parseInts(raw)
	if !ok {
		return db, false
	}

	if f.DateYear {
		return f.applyDateYear(db, op, vals)
	}

	switch op {
	case opNone, opIn:
		return db.Where(f.Column+" IN ?", vals), true
	case opLT, opGT, opLTE, opGTE:
		if len(vals) != 1 {
			return db, false
		}
		return db.Where(fmt.Sprintf("%s %s ?", f.Column, sqlComparison(op)), vals[0]), true
	}
	return db, false
}

func (f IntField) applyDateYear(db *gorm.DB, op string, vals []int) (*gorm.DB, bool) {
	switch op {
	case opNone, opIn:
		clauses := make([]string, 0, len(vals))
		args := make([]interface{}, 0, len(vals)*2)
		for _, year := range vals {
			clauses = append(clauses, "("+f.Column+" >= ? AND "+f.Column+" < ?)")
			args = append(args, yearStart(year), yearStart(year+1))
		}
		return db.Where(strings.Join(clauses, " OR "), args...), true
	case opLT:
		return singleYear(db, vals, f.Column+" < ?", func(y int) time.Time { return yearStart(y) })
	case opLTE:
		return singleYear(db, vals, f.Column+" < ?", func(y int) time.Time { return yearStart(y + 1) })
	case opGT:
		return singleYear(db, vals, f.Column+" >= ?", func(y int) time.Time { return yearStart(y + 1) })
	case opGTE:
		return singleYear(db, vals, f.Column+" >= ?", func(y int) time.Time { return yearStart(y) })
	}
	return db, false
}

func singleYear(db *gorm.DB, vals []int, clause string, boundary func(int) time.Time) (*gorm.DB, bool) {
	if len(vals) != 1 {
		return db, false
	}
	return db.Where(clause, boundary(vals[0])), true
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ManyToManyField filters by labels attached through a join table. The
// default (and __and) semantics require every listed label; __or matches any.
type ManyToManyField struct {
	JoinTable   string // e.g. club_tags
	OwnerKey    string // join column referencing the owner, e.g. club_id
	RefKey      string // join column referencing the label, e.g. tag_id
	RefTable    string // e.g. tags
	LabelColumn string // e.g. name
	OwnerColumn string // e.g. clubs.id
}

func (f ManyToManyField) apply(db *gorm.DB, op, raw string) (*gorm.DB, bool) {
	labels := splitValues(raw)
	if len(labels) == 0 {
		return db, false
	}

	switch op {
	case opOr:
		return db.Where(f.existsClause(), labels), true
	case opNone, opAnd:
		for _, label := range labels {
			db = db.Where(f.existsClause(), []string{label})
		}
		return db, true
	}
	return db, false
}

func (f ManyToManyField) existsClause() string {
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %[1]s JOIN %[2]s ON %[2]s.id = %[1]s.%[3]s WHERE %[1]s.%[4]s = %[5]s AND %[2]s.%[6]s IN ?)",
		f.JoinTable, f.RefTable, f.RefKey, f.OwnerKey, f.OwnerColumn, f.LabelColumn,
	)
}

// YearField filters the target-years relation. Plain values match year names
// like the other label relations; comparison suffixes interpret values as
// graduation years and resolve them against the year table.
type YearField struct {
	M2M ManyToManyField
	Now func() time.Time
}

func (f YearField) apply(db *gorm.DB, op, raw string) (*gorm.DB, bool) {
	switch op {
	case opNone, opAnd, opOr:
		return f.M2M.apply(db, op, raw)
	case opLT, opGT, opLTE, opGTE, opIn:
		vals, ok := parseInts(raw)
		if !ok {
			return db, false
		}

		names, err := f.matchingNames(db, op, vals)
		if err != nil || len(names) == 0 {
			return db, false
		}
		return db.Where(f.M2M.existsClause(), names), true
	}
	return db, false
}

func (f YearField) matchingNames(db *gorm.DB, op string, vals []int) ([]string, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	var years []models.Year
	if err := db.Session(&gorm.Session{NewDB: true}).Find(&years).Error; err != nil {
		return nil, err
	}

	var names []string
	for _, year := range years {
		grad := year.GraduationYear(now())
		if grad == 0 {
			continue
		}
		if matchesComparison(op, grad, vals) {
			names = append(names, year.Name)
		}
	}
	return names, nil
}

func matchesComparison(op string, value int, vals []int) bool {
	switch op {
	case opIn:
		for _, v := range vals {
			if value == v {
				return true
			}
		}
		return false
	case opLT:
		return len(vals) == 1 && value < vals[0]
	case opLTE:
		return len(vals) == 1 && value <= vals[0]
	case opGT:
		return len(vals) == 1 && value > vals[0]
	case opGTE:
		return len(vals) == 1 && value >= vals[0]
	}
	return false
}

func sqlComparison(op string) string {
	switch op {
	case opLT:
		return "<"
	case opGT:
		return ">"
	case opLTE:
		return "<="
	case opGTE:
		return ">="
	}
	return "="
}

func parseInts(raw string) ([]int, bool) {
	parts := splitValues(raw)
	if len(parts) == 0 {
		return nil, false
	}

	vals := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		vals = append(vals, n)
	}
	return vals, true
}
