package ingest

import "strings"

// Role identifies the semantic meaning of a source column. The operator
// exports carry Turkish headers whose exact spelling drifts between files
// ("HAT NO", "hat_no", "HATNO"), so columns are located by normalized
// keyword matching rather than exact names.
type Role string

const (
	RoleLineID         Role = "LINE_ID"
	RoleStopID         Role = "STOP_ID"
	RoleDate           Role = "DATE"
	RoleHour           Role = "HOUR"
	RolePassengerCount Role = "PASSENGER_COUNT"
	RoleDepartureTime  Role = "DEPARTURE_TIME"
	RoleArrivalTime    Role = "ARRIVAL_TIME"
)

// ColumnMap maps a resolved role to the index of its column in the
// source header. A role absent from the map means no header matched;
// callers treat the file as unusable for that role and skip it.
type ColumnMap map[Role]int

// Has reports whether every given role was resolved.
func (m ColumnMap) Has(roles ...Role) bool {
	for _, r := range roles {
		if _, ok := m[r]; !ok {
			return false
		}
	}
	return true
}

// turkishFold maps Turkish letters to their ASCII lookalikes so that
// "BİNİŞ" and "BINIS" normalize identically.
var turkishFold = strings.NewReplacer(
	"İ", "I", "ı", "i",
	"Ş", "S", "ş", "s",
	"Ç", "C", "ç", "c",
	"Ğ", "G", "ğ", "g",
	"Ü", "U", "ü", "u",
	"Ö", "O", "ö", "o",
)

// NormalizeHeader trims a raw header, folds Turkish characters to ASCII,
// uppercases, and collapses whitespace and underscores so keyword
// predicates see a single canonical form.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, "\n", "")
	h = strings.ReplaceAll(h, "\r", "")
	h = turkishFold.Replace(h)
	h = strings.ToUpper(h)
	h = strings.ReplaceAll(h, " ", "_")
	return h
}

// rolePredicate reports whether a normalized header satisfies a role.
type rolePredicate func(norm string) bool

func allOf(subs ...string) rolePredicate {
	return func(norm string) bool {
		for _, s := range subs {
			if !strings.Contains(norm, s) {
				return false
			}
		}
		return true
	}
}

func anyOf(subs ...string) rolePredicate {
	return func(norm string) bool {
		for _, s := range subs {
			if strings.Contains(norm, s) {
				return true
			}
		}
		return false
	}
}

func not(p rolePredicate) rolePredicate {
	return func(norm string) bool { return !p(norm) }
}

func and(ps ...rolePredicate) rolePredicate {
	return func(norm string) bool {
		for _, p := range ps {
			if !p(norm) {
				return false
			}
		}
		return true
	}
}

// rolePredicates is the ordered matching policy per role. The first
// header satisfying a predicate wins; roles resolve independently.
var rolePredicates = []struct {
	role Role
	pred rolePredicate
}{
	// "ALT_HAT_NO" must not shadow the main line column.
	{RoleLineID, and(allOf("HAT", "NO"), not(anyOf("ALT")))},
	{RoleStopID, allOf("DURAK", "NO")},
	{RoleDepartureTime, anyOf("CIKIS")},
	{RoleArrivalTime, anyOf("VARIS")},
	// DATE before HOUR: "ISLEM_ZAMANI" style combined columns carry the
	// date, while a bare "SAAT" column carries only the hour.
	{RoleDate, anyOf("TARIH", "ISLEM", "ZAMAN")},
	{RoleHour, anyOf("SAAT")},
	{RolePassengerCount, anyOf("BINIS", "YOLCU", "SAYI")},
}

// ResolveColumns locates the semantic columns in a raw header row.
// It never fails: unresolvable roles are simply absent from the result.
func ResolveColumns(headers []string) ColumnMap {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = NormalizeHeader(h)
	}
	m := make(ColumnMap)
	for _, rp := range rolePredicates {
		for i, n := range norm {
			if rp.pred(n) {
				m[rp.role] = i
				break
			}
		}
	}
	return m
}
